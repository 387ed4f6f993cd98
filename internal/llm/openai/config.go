package openai

import (
	"time"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string        // required
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o"
	Temperature float32       // 0..2
	MaxTokens   int           // structured-extraction completion cap
	Timeout     time.Duration // http client timeout
}

func (cfg Config) withDefaults() Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return cfg
}
