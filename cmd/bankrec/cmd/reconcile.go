package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"backoffice-reconciliation/cmd/bankrec/config"
	"backoffice-reconciliation/internal/advisor"
	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/lifecycle"
	"backoffice-reconciliation/internal/reporter"
	"backoffice-reconciliation/internal/session"
	"backoffice-reconciliation/internal/statement"
	"backoffice-reconciliation/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	statementFile string
	ledgerFile    string
	outputFormat  string
	outputFile    string
	autoConfirm   bool
	useAdvisor    bool
	advisorDelay  time.Duration
	showProgress  bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Import a bank statement and match its movements against the ledger",
	Long: `Reconcile normalizes a bank statement export, matches each movement
against the ledger's invoices and cash-flow records, and reports the
outcome. Exact amount matches can be confirmed automatically; for the
rest the report lists up to three ranked candidates per movement, and
the AI advisor can be consulted for a fuzzy suggestion.

Examples:
  # Basic run against a ledger fixture
  bankrec reconcile --statement estratto_conto.csv --ledger ledger.json

  # Accept exact matches immediately and write a JSON report
  bankrec reconcile --statement export.csv --ledger ledger.json \
    --auto-confirm --output-format json --output-file report.json

  # Consult the AI advisor for unexplained movements
  bankrec reconcile --statement export.csv --ledger ledger.json --advisor`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&statementFile, "statement", "s", "", "path to the bank statement export (required)")

	// Ledger flags
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to a JSON ledger fixture of invoices and cash-flow records")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching flags
	reconcileCmd.Flags().BoolVar(&autoConfirm, "auto-confirm", false, "confirm exact matches immediately instead of leaving them for review")

	// Advisor flags
	reconcileCmd.Flags().BoolVar(&useAdvisor, "advisor", false, "consult the AI advisor for movements without an exact match")
	reconcileCmd.Flags().DurationVar(&advisorDelay, "advisor-delay", advisor.DefaultBatchDelay, "delay between successive advisor calls")

	// UI flags
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	reconcileCmd.MarkFlagRequired("statement")

	// Bind flags to viper
	viper.BindPFlag("statement", reconcileCmd.Flags().Lookup("statement"))
	viper.BindPFlag("ledger", reconcileCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("auto-confirm", reconcileCmd.Flags().Lookup("auto-confirm"))
	viper.BindPFlag("advisor", reconcileCmd.Flags().Lookup("advisor"))
	viper.BindPFlag("advisor-delay", reconcileCmd.Flags().Lookup("advisor-delay"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	statementFile = viper.GetString("statement")
	ledgerFile = viper.GetString("ledger")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	autoConfirm = viper.GetBool("auto-confirm")
	useAdvisor = viper.GetBool("advisor")
	showProgress = viper.GetBool("progress")
	if viper.IsSet("advisor-delay") {
		advisorDelay = viper.GetDuration("advisor-delay")
	}

	if statementFile == "" {
		return fmt.Errorf("statement is required")
	}
	if err := validateFileExists(statementFile, "statement export"); err != nil {
		return err
	}
	if ledgerFile != "" {
		if err := validateFileExists(ledgerFile, "ledger fixture"); err != nil {
			return err
		}
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if advisorDelay < 0 {
		return fmt.Errorf("advisor delay cannot be negative")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}

	return nil
}

func validateFileExists(path, description string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s not found: %s", description, path)
		}
		return fmt.Errorf("cannot access %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file: %s", description, path)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exitCode, err := executeReconcile(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func executeReconcile(ctx context.Context) (int, error) {
	log := logger.WithComponent("cli")

	memLedger := ledger.NewMemoryLedger()
	if ledgerFile != "" {
		if err := memLedger.LoadFile(ledgerFile); err != nil {
			return 0, err
		}
		log.WithField("ledger_file", ledgerFile).Debug("ledger fixture loaded")
	}

	var suggester lifecycle.Suggester
	if useAdvisor {
		collaborator, err := config.CreateCollaborator(ctx)
		if err != nil {
			return 0, err
		}
		suggester = advisor.New(collaborator, log)
	}

	sess := session.New(statement.NewParser(config.CreateParserConfig()), memLedger, memLedger, suggester, log)

	opts := session.Options{
		AutoConfirm:  autoConfirm,
		RunAdvisor:   useAdvisor,
		AdvisorDelay: advisorDelay,
	}
	if showProgress {
		opts.Progress = func(processed, total int) {
			fmt.Fprintf(os.Stderr, "\radvisor: %d/%d", processed, total)
			if processed == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	result, err := sess.ImportFile(ctx, statementFile, opts)
	if err != nil {
		return 0, err
	}

	generator, err := reporter.NewGenerator(config.CreateReportConfig(reporter.OutputFormat(outputFormat)))
	if err != nil {
		return 0, err
	}

	var out io.Writer = os.Stdout
	if outputFile != "" {
		file, createErr := os.Create(outputFile)
		if createErr != nil {
			return 0, fmt.Errorf("cannot create output file: %w", createErr)
		}
		defer file.Close()
		out = file
	}

	if err := generator.Generate(result, out); err != nil {
		return 0, err
	}

	return 0, nil
}
