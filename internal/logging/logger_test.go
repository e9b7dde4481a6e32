package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/secretmgr/internal/logging"
)

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "secret is redacted", input: "my-secret-password"},
		{name: "empty secret is still redacted", input: ""},
		{name: "hex key is redacted", input: "0123456789abcdef0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, "[REDACTED]", logging.Secret(tt.input).String())
			assert.Equal(t, "[REDACTED]", logging.Secret(tt.input).GoString())
		})
	}
}

func TestLoggerWritesLevelPrefixes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false)

	logger.Info("loaded %s", "totp_master_key")
	logger.Warn("slow source")
	logger.Error("load failed")
	logger.Critical("startup failure")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "✓ loaded totp_master_key")
	assert.Contains(t, out, "⚠ slow source")
	assert.Contains(t, out, "✗ load failed")
	assert.Contains(t, out, "[CRITICAL] startup failure")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "\033[")
}

func TestLoggerDebugMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true)
	logger.Logf(logging.LevelDebug, "querying %s", "env")

	assert.Equal(t, "[DEBUG] querying env\n", buf.String())
}

func TestLoggerRedactsSecretArguments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false)
	logger.Info("value: %s", logging.Secret("deadbeefdeadbeef"))

	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), "deadbeef")
}

func TestNilLoggerIsSilent(t *testing.T) {
	t.Parallel()

	var logger *logging.Logger
	assert.NotPanics(t, func() { logger.Error("nothing") })
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "critical", logging.LevelCritical.String())
	assert.Equal(t, "warn", logging.LevelWarn.String())
	assert.True(t, strings.HasPrefix(logging.Level(42).String(), "level("))
}

func TestRedact(t *testing.T) {
	t.Parallel()

	out := logging.Redact("key=abcdef123 short=ab", []string{"abcdef123", "ab"})
	assert.Equal(t, "key=[REDACTED] short=ab", out)
}
