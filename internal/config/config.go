package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the call auditor service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// LLM backend (OpenAI-compatible; Groq's compatibility endpoint by
	// default). Optional: without an API key only pattern analysis is
	// available.
	LLMAPIKey      string  `envconfig:"LLM_API_KEY" default:""`
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
	LLMModel       string  `envconfig:"LLM_MODEL" default:"llama-3.1-8b-instant"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.1"`
	LLMBatchSize   int     `envconfig:"LLM_BATCH_SIZE" default:"5"`   // calls per batch
	LLMTimeout     int     `envconfig:"LLM_TIMEOUT" default:"30"`     // seconds per request

	// Detector rules
	RulesPath string `envconfig:"RULES_PATH" default:""` // YAML pattern overrides; empty uses built-ins

	// Batch analysis
	AnalysisWorkers int `envconfig:"ANALYSIS_WORKERS" default:"4"` // concurrent per-call timeline analyses

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"1000"`       // Initial backoff in milliseconds
	RetryMaxBackoff            int `envconfig:"RETRY_MAX_BACKOFF" default:"60000"`          // Backoff ceiling in milliseconds
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Report output
	ReportDir string `envconfig:"REPORT_DIR" default:""` // persist analysis runs as JSON when set

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables. It first attempts
// to load from a .env file if one exists, then from the environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized
// deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LLMBatchSize <= 0 {
		return nil, fmt.Errorf("LLM_BATCH_SIZE must be positive")
	}
	if cfg.AnalysisWorkers <= 0 {
		return nil, fmt.Errorf("ANALYSIS_WORKERS must be positive")
	}

	return &cfg, nil
}

// LLMEnabled reports whether an LLM backend is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}
