package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY sets the key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-key", cfg.LLM.APIKey)
	})

	t.Run("GEMINI_API_KEY overrides the file value", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.LLM.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-key", cfg.LLM.APIKey)
	})

	t.Run("empty env vars leave config alone", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GALVANIY_ADDR", "")

		cfg := DefaultConfig()
		cfg.LLM.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "file-key", cfg.LLM.APIKey)
		assert.Equal(t, ":8080", cfg.Server.Addr)
	})

	t.Run("paths override", func(t *testing.T) {
		t.Setenv("GALVANIY_DB", "/data/galvaniy.db")
		t.Setenv("GALVANIY_MANUAL", "/data/manual.txt")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		require.Equal(t, "/data/galvaniy.db", cfg.Storage.DatabasePath)
		require.Equal(t, "/data/manual.txt", cfg.Storage.ManualPath)
	})
}
