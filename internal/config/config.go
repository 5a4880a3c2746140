// Package config holds all symvm configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all symvm configuration.
type Config struct {
	// LLM provider used for the interpretation oracle and the
	// plausible-value call resolver.
	LLM LLMConfig `yaml:"llm"`

	// Execution settings for the instruction loop.
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the oracle's LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, openai, ollama, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ExecutionConfig configures the instruction loop.
type ExecutionConfig struct {
	// MaxSteps caps the number of executed instructions per run.
	MaxSteps int `yaml:"max_steps"`

	// UnresolvedCallStrategy picks the resolver for calls with no modeled
	// body: "symbolic" or "llm".
	UnresolvedCallStrategy string `yaml:"unresolved_call_strategy"`

	// SourceLanguage tags oracle requests with the program's source
	// language, when known.
	SourceLanguage string `yaml:"source_language"`

	// EntryPoint is the label or function name execution starts from.
	EntryPoint string `yaml:"entry_point"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "anthropic",
			Timeout:  "120s",
		},
		Execution: ExecutionConfig{
			MaxSteps:               100,
			UnresolvedCallStrategy: "symbolic",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file, applies environment overrides, and
// validates the result. An empty path yields defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps well-known environment variables onto the config.
// ANTHROPIC_API_KEY only claims the provider when none was chosen;
// OPENAI_API_KEY and GEMINI_API_KEY override it, in that order.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "anthropic"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if base := os.Getenv("SYMVM_LLM_BASE_URL"); base != "" {
		c.LLM.BaseURL = base
	}
}

func (c *Config) validate() error {
	switch c.Execution.UnresolvedCallStrategy {
	case "", "symbolic", "llm":
	default:
		return fmt.Errorf("unknown unresolved_call_strategy: %q", c.Execution.UnresolvedCallStrategy)
	}
	if c.Execution.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.Execution.MaxSteps)
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid llm timeout: %w", err)
		}
	}
	return nil
}

// LLMTimeout returns the configured provider timeout, defaulting to two
// minutes.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}
