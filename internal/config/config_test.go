package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("LLM_API_KEY", "test-llm-key")
	defer os.Unsetenv("LLM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLMAPIKey != "test-llm-key" {
		t.Errorf("Expected LLMAPIKey 'test-llm-key', got '%s'", cfg.LLMAPIKey)
	}
	if !cfg.LLMEnabled() {
		t.Error("Expected LLMEnabled() with an API key set")
	}
}

func TestLoad_NoAPIKeyStillWorks(t *testing.T) {
	os.Unsetenv("LLM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed without LLM key: %v", err)
	}
	if cfg.LLMEnabled() {
		t.Error("Expected LLMEnabled() to be false without an API key")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("LLM_MODEL")
	os.Unsetenv("LLM_BATCH_SIZE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}
	if cfg.LLMModel != "llama-3.1-8b-instant" {
		t.Errorf("Expected default LLMModel 'llama-3.1-8b-instant', got '%s'", cfg.LLMModel)
	}
	if cfg.LLMBaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Expected Groq compatibility endpoint by default, got '%s'", cfg.LLMBaseURL)
	}
	if cfg.LLMBatchSize != 5 {
		t.Errorf("Expected default LLMBatchSize 5, got %d", cfg.LLMBatchSize)
	}
	if cfg.LLMTemperature != 0.1 {
		t.Errorf("Expected default LLMTemperature 0.1, got %v", cfg.LLMTemperature)
	}
	if cfg.AnalysisWorkers != 4 {
		t.Errorf("Expected default AnalysisWorkers 4, got %d", cfg.AnalysisWorkers)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected metrics enabled by default")
	}
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	os.Setenv("LLM_BATCH_SIZE", "0")
	defer os.Unsetenv("LLM_BATCH_SIZE")

	if _, err := Load(); err == nil {
		t.Error("Expected error for zero batch size")
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("ANALYSIS_WORKERS", "8")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("ANALYSIS_WORKERS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected Port '9090', got '%s'", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.AnalysisWorkers != 8 {
		t.Errorf("Expected AnalysisWorkers 8, got %d", cfg.AnalysisWorkers)
	}
}
