// Package config builds the component configurations the CLI wires together.
package config

import (
	"context"

	"backoffice-reconciliation/internal/advisor"
	"backoffice-reconciliation/internal/advisor/gemini"
	"backoffice-reconciliation/internal/reporter"
	"backoffice-reconciliation/internal/statement"

	"github.com/spf13/viper"
)

// CreateParserConfig creates the statement parser configuration, applying
// overrides from the config file when present.
func CreateParserConfig() *statement.Config {
	config := statement.DefaultConfig()

	if viper.IsSet("parser.header_scan_rows") {
		config.HeaderScanRows = viper.GetInt("parser.header_scan_rows")
	}
	if viper.IsSet("parser.metadata_scan_rows") {
		config.MetadataScanRows = viper.GetInt("parser.metadata_scan_rows")
	}
	if delimiter := viper.GetString("parser.delimiter"); len(delimiter) == 1 {
		config.Delimiter = rune(delimiter[0])
	}

	return config
}

// CreateReportConfig creates the report generator configuration for the
// chosen output format.
func CreateReportConfig(format reporter.OutputFormat) *reporter.Config {
	config := reporter.DefaultConfig()
	config.Format = format

	if viper.IsSet("report.include_candidates") {
		config.IncludeCandidates = viper.GetBool("report.include_candidates")
	}

	return config
}

// CreateCollaborator creates the Gemini-backed advisor collaborator from
// configuration. The API key comes from advisor.api_key or the
// BANKREC_ADVISOR_API_KEY environment variable.
func CreateCollaborator(ctx context.Context) (advisor.Collaborator, error) {
	apiKey := viper.GetString("advisor.api_key")
	if apiKey == "" {
		apiKey = viper.GetString("ADVISOR_API_KEY")
	}
	model := viper.GetString("advisor.model")

	return gemini.NewClient(ctx, apiKey, model)
}
