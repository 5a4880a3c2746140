package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearLLMEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SYMVM_LLM_BASE_URL", "")
	os.Unsetenv("ANTHROPIC_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("SYMVM_LLM_BASE_URL")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 100, cfg.Execution.MaxSteps)
	assert.Equal(t, "symbolic", cfg.Execution.UnresolvedCallStrategy)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout())
}

func TestLoadYAML(t *testing.T) {
	clearLLMEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: qwen2.5-coder:14b
  base_url: http://10.0.0.5:11434/v1
  timeout: 45s
execution:
  max_steps: 500
  unresolved_call_strategy: llm
  source_language: kotlin
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "qwen2.5-coder:14b", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 500, cfg.Execution.MaxSteps)
	assert.Equal(t, "llm", cfg.Execution.UnresolvedCallStrategy)
	assert.Equal(t, "kotlin", cfg.Execution.SourceLanguage)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverridePrecedence(t *testing.T) {
	t.Run("anthropic only claims empty provider", func(t *testing.T) {
		clearLLMEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
		assert.Equal(t, "ant-key", cfg.LLM.APIKey)
	})

	t.Run("openai overrides anthropic", func(t *testing.T) {
		clearLLMEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		t.Setenv("OPENAI_API_KEY", "oai-key")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "oai-key", cfg.LLM.APIKey)
	})

	t.Run("gemini overrides openai", func(t *testing.T) {
		clearLLMEnv(t)
		t.Setenv("OPENAI_API_KEY", "oai-key")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	})

	t.Run("base url override", func(t *testing.T) {
		clearLLMEnv(t)
		t.Setenv("SYMVM_LLM_BASE_URL", "http://proxy:8080/v1")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "http://proxy:8080/v1", cfg.LLM.BaseURL)
	})
}

func TestValidate(t *testing.T) {
	t.Run("bad strategy", func(t *testing.T) {
		clearLLMEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("execution:\n  unresolved_call_strategy: oracle\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad max steps", func(t *testing.T) {
		clearLLMEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("execution:\n  max_steps: -1\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad timeout", func(t *testing.T) {
		clearLLMEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("llm:\n  timeout: soon\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
