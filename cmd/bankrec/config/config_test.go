package config

import (
	"testing"

	"backoffice-reconciliation/internal/reporter"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestCreateParserConfigDefaults(t *testing.T) {
	viper.Reset()

	config := CreateParserConfig()
	assert.Equal(t, 15, config.HeaderScanRows)
	assert.Equal(t, 10, config.MetadataScanRows)
	assert.Equal(t, rune(0), config.Delimiter, "delimiter sniffed by default")
}

func TestCreateParserConfigOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("parser.header_scan_rows", 20)
	viper.Set("parser.delimiter", ";")

	config := CreateParserConfig()
	assert.Equal(t, 20, config.HeaderScanRows)
	assert.Equal(t, ';', config.Delimiter)
}

func TestCreateReportConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config := CreateReportConfig(reporter.FormatJSON)
	assert.Equal(t, reporter.FormatJSON, config.Format)
	assert.True(t, config.IncludeCandidates)

	viper.Set("report.include_candidates", false)
	config = CreateReportConfig(reporter.FormatConsole)
	assert.False(t, config.IncludeCandidates)
}
