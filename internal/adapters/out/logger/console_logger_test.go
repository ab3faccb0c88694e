package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

func TestConsoleLogger_WritesModuleAndFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewConsoleLogger("UTC", WithWriter(&buf))
	require.NoError(t, err)

	log := base.WithModule("RulesLoader").WithFields(out.LogFields{"namespace": "delivery"})
	log.Info("rules.fetch.started", out.LogFields{"key": "rules"})

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "[RulesLoader]")
	assert.Contains(t, output, `"event": "rules.fetch.started"`)
	assert.Contains(t, output, `"namespace": "delivery"`)
	assert.Contains(t, output, `"key": "rules"`)
	assert.NotContains(t, output, colorReset)
}

func TestConsoleLogger_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewConsoleLogger("UTC", WithWriter(&buf), WithMinLevel(out.LogLevelWarn))
	require.NoError(t, err)

	log.Debug("debug.event", nil)
	log.Info("info.event", nil)
	assert.Empty(t, buf.String())

	log.Error("error.event", nil)
	assert.Contains(t, buf.String(), "error.event")
}

func TestConsoleLogger_WithFieldsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewConsoleLogger("UTC", WithWriter(&buf))
	require.NoError(t, err)

	_ = base.WithFields(out.LogFields{"sessionId": "abc"})
	base.Info("plain.event", nil)

	assert.NotContains(t, buf.String(), "sessionId")
	assert.Contains(t, buf.String(), "[unknown]")
}

func TestConsoleLogger_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	log, err := NewConsoleLogger("Nowhere/Nothing")
	require.NoError(t, err)
	assert.NotNil(t, log.location)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, out.LogLevelDebug, out.ParseLogLevel("debug"))
	assert.Equal(t, out.LogLevelWarn, out.ParseLogLevel(" WARN "))
	assert.Equal(t, out.LogLevelInfo, out.ParseLogLevel("verbose"))
	assert.True(t, out.LogLevelError.Enabled(out.LogLevelInfo))
	assert.False(t, out.LogLevelDebug.Enabled(out.LogLevelInfo))
}
