package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugConfigEnablesDebugOutput(t *testing.T) {
	var buf bytes.Buffer
	config := DebugConfig()
	config.Output = &buf

	log, err := NewLogger(config)
	require.NoError(t, err)

	log.Debug("header row detected")
	assert.Contains(t, buf.String(), "header row detected")

	buf.Reset()
	defaultLog, err := NewLogger(&Config{Level: InfoLevel, Format: TextFormat, Output: &buf})
	require.NoError(t, err)
	defaultLog.Debug("suppressed")
	assert.Empty(t, buf.String(), "debug suppressed at info level")
}

func TestWithComponentScopesGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})
	require.NoError(t, err)

	previous := GetGlobalLogger()
	SetGlobalLogger(log)
	defer SetGlobalLogger(previous)

	WithComponent("cli").WithField("step", "import").Info("started")

	out := buf.String()
	assert.Contains(t, out, `"component":"cli"`)
	assert.Contains(t, out, `"step":"import"`, "chained fields accumulate")
}

func TestConfigValidate(t *testing.T) {
	bad := &Config{Level: Level("loud"), Format: TextFormat}
	require.Error(t, bad.Validate())

	bad = &Config{Level: InfoLevel, Format: Format("xml")}
	require.Error(t, bad.Validate())

	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, DebugConfig().Validate())
}
