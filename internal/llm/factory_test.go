package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symvm/internal/config"
)

func TestNewClientProviderSelection(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		c, err := NewClient(config.LLMConfig{Provider: "anthropic", APIKey: "k"}, time.Minute)
		require.NoError(t, err)
		ac, ok := c.(*AnthropicClient)
		require.True(t, ok)
		assert.NotEmpty(t, ac.GetModel())
	})

	t.Run("openai with overrides", func(t *testing.T) {
		c, err := NewClient(config.LLMConfig{
			Provider: "openai",
			APIKey:   "k",
			Model:    "gpt-4o-mini",
			BaseURL:  "http://gateway.local/v1",
		}, time.Minute)
		require.NoError(t, err)
		oc, ok := c.(*OpenAIClient)
		require.True(t, ok)
		assert.Equal(t, "gpt-4o-mini", oc.GetModel())
		assert.Equal(t, "http://gateway.local/v1", oc.baseURL)
	})

	t.Run("ollama speaks the openai protocol", func(t *testing.T) {
		c, err := NewClient(config.LLMConfig{Provider: "ollama"}, time.Minute)
		require.NoError(t, err)
		oc, ok := c.(*OpenAIClient)
		require.True(t, ok)
		assert.Equal(t, "http://localhost:11434/v1", oc.baseURL)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient(config.LLMConfig{Provider: "mystery"}, time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mystery")
	})

	t.Run("gemini requires an api key", func(t *testing.T) {
		_, err := NewClient(config.LLMConfig{Provider: "gemini"}, time.Minute)
		assert.Error(t, err)
	})
}
