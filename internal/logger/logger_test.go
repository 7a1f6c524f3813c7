package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/sessionkey/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Cleanup(func() { log.Logger = zerolog.Nop() })

	t.Run("create logger with console output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "info", Console: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		log.Info().Str("session_key", "agent:main:main").Msg("hello")
		assert.Contains(t, buf.String(), `"session_key":"agent:main:main"`)
	})

	t.Run("level filters lower events", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "warn", Console: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		log.Info().Msg("dropped")
		assert.Empty(t, buf.String())
		assert.Equal(t, zerolog.WarnLevel, logger.GetZerolog().GetLevel())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetZerolog().GetLevel())
	})

	t.Run("create logger with file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "sessionkey.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		componentLogger := logger.Component("routing")
		componentLogger.Info().Msg("test message")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"routing"`)
	})

	t.Run("redaction hides cli session ids", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: "debug", Console: true, Redaction: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()
		assert.NotNil(t, logger.redactor)

		log.Debug().Str("cli_session_id", "sess-abc-123").Msg("CLI session recorded")
		assert.Contains(t, buf.String(), `"cli_session_id":"[REDACTED]"`)
		assert.NotContains(t, buf.String(), "sess-abc-123")
	})
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{
		Level:     "debug",
		File:      "/tmp/x.log",
		Console:   true,
		Pretty:    false,
		Redaction: true,
	})

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "/tmp/x.log", cfg.File)
	assert.True(t, cfg.Console)
	assert.False(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Nil(t, cfg.Output)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
}
