package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Sheet    SheetConfig
	Pipeline PipelineConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string
	UploadDir   string
	StaticDir   string
	MaxUploadMB int
}

// LLMConfig holds extraction-service configuration
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// SheetConfig holds the target spreadsheet configuration
type SheetConfig struct {
	Path string
}

// PipelineConfig holds the policy constants of the document pipeline
type PipelineConfig struct {
	LeadingPages  int
	TrailingPages int
	FormatPrePass bool
}

// HistoryConfig holds the processing-history store configuration.
// An empty Path disables history recording.
type HistoryConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":" + getEnv("PORT", "3000"),
			UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
			StaticDir:   getEnv("STATIC_DIR", "./public"),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 32),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("GPT_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 4096),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Sheet: SheetConfig{
			Path: getEnv("SHEET_PATH", "./planilha/fatura.xlsx"),
		},
		Pipeline: PipelineConfig{
			LeadingPages:  getEnvAsInt("TRIM_LEADING_PAGES", 1),
			TrailingPages: getEnvAsInt("TRIM_TRAILING_PAGES", 2),
			FormatPrePass: getEnvAsBool("FORMAT_PREPASS", true),
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB", "./fatura-history.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GPT_KEY is required", ErrInvalidInput)
	}
	if c.Sheet.Path == "" {
		return NewAppError("CONFIG_ERROR", "SHEET_PATH is required", ErrInvalidInput)
	}
	if c.Pipeline.LeadingPages < 0 || c.Pipeline.TrailingPages < 0 {
		return NewAppError("CONFIG_ERROR", "trim margins must not be negative", ErrInvalidInput)
	}
	return nil
}
