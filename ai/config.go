package ai

import (
	"github.com/pkg/errors"

	"github.com/castoldi/stash/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	LLM     LLMConfig
	Enabled bool
}

// LLMConfig represents LLM service configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, siliconflow, openrouter, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.3
	Timeout     int     // request timeout in seconds (default: 30)
}

// NewConfigFromProfile creates AI config from the instance profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	// Enrichment runs inline with user-visible writes, so keep generations
	// short and near-deterministic.
	cfg.LLM = LLMConfig{
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		MaxTokens:   1024,
		Temperature: 0.3,
		Timeout:     p.LLMTimeout,
	}
	return cfg
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.LLM.Model == "" {
		return errors.New("llm model is required")
	}
	if c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		return errors.Errorf("llm api key is required for provider %q", c.LLM.Provider)
	}
	return nil
}
