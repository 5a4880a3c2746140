package llm

import (
	"fmt"
	"time"

	"symvm/internal/config"
)

// NewClient builds a provider client from configuration. The provider name
// selects the implementation; model, base URL and timeout override the
// provider defaults when set.
func NewClient(cfg config.LLMConfig, timeout time.Duration) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		c := DefaultAnthropicConfig(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		if timeout > 0 {
			c.Timeout = timeout
		}
		return NewAnthropicClientWithConfig(c), nil

	case "openai":
		c := DefaultOpenAIConfig(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		if timeout > 0 {
			c.Timeout = timeout
		}
		return NewOpenAIClientWithConfig(c), nil

	case "ollama":
		c := DefaultOllamaConfig()
		if cfg.APIKey != "" {
			c.APIKey = cfg.APIKey
		}
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		if timeout > 0 {
			c.Timeout = timeout
		}
		return NewOpenAIClientWithConfig(c), nil

	case "gemini":
		c := DefaultGeminiConfig(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		return NewGeminiClientWithConfig(c)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
