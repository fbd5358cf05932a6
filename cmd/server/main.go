package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/complyvoice/call-auditor/internal/api"
	"github.com/complyvoice/call-auditor/internal/config"
	"github.com/complyvoice/call-auditor/internal/detect"
	"github.com/complyvoice/call-auditor/internal/detect/llm"
	"github.com/complyvoice/call-auditor/internal/observability"
	"github.com/complyvoice/call-auditor/internal/report"
	"github.com/complyvoice/call-auditor/internal/resilience"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("llm_enabled", cfg.LLMEnabled()).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Call Auditor Service starting")

	// Compile detector rules once; the rule set is immutable and shared
	// across all requests.
	rules := detect.DefaultRuleSet()
	if cfg.RulesPath != "" {
		rules, err = detect.LoadRuleSet(cfg.RulesPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("Failed to load detector rules")
		}
		logger.Info().Str("path", cfg.RulesPath).Msg("Detector rules loaded")
	}
	patterns := detect.NewPatternDetector(rules)

	// Optional LLM backend
	var llmDetector *llm.Detector
	if cfg.LLMEnabled() {
		client, err := llm.NewOpenAIClient(llm.ClientConfig{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			Timeout:     time.Duration(cfg.LLMTimeout) * time.Second,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create LLM client")
		}
		breaker := resilience.NewCircuitBreaker("llm",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)
		llmDetector = llm.NewDetector(client, llm.DetectorConfig{
			BatchSize: cfg.LLMBatchSize,
			Retry: &resilience.RetryConfig{
				MaxAttempts:       cfg.RetryMaxAttempts,
				InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
				MaxBackoff:        time.Duration(cfg.RetryMaxBackoff) * time.Millisecond,
				BackoffMultiplier: 2.0,
				Jitter:            true,
			},
			Breaker: breaker,
		})
		logger.Info().Str("model", cfg.LLMModel).Msg("LLM analysis enabled")
	}

	// Optional report persistence
	var writer *report.Writer
	if cfg.ReportDir != "" {
		writer = report.NewWriter(cfg.ReportDir)
		logger.Info().Str("dir", cfg.ReportDir).Msg("Report persistence enabled")
	}

	// Create HTTP server
	mux := http.NewServeMux()

	handler := api.NewHandler(cfg, patterns, llmDetector, writer)
	handler.Register(mux)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness: rules must compile and, when enabled, the LLM client must
	// construct. No live API call is made to avoid costs.
	rulesCheck := observability.NamedCheck{
		Name: "rules",
		Check: func(ctx context.Context) (bool, error) {
			if cfg.RulesPath == "" {
				return true, nil
			}
			_, err := detect.LoadRuleSet(cfg.RulesPath)
			return err == nil, err
		},
	}
	llmCheck := observability.NamedCheck{
		Name: "llm",
		Check: func(ctx context.Context) (bool, error) {
			if !cfg.LLMEnabled() {
				return true, nil
			}
			_, err := llm.NewOpenAIClient(llm.ClientConfig{
				APIKey: cfg.LLMAPIKey,
				Model:  cfg.LLMModel,
			})
			return err == nil, err
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(rulesCheck, llmCheck))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. Analysis of a large batch through
	// the LLM path can be slow, hence the generous write timeout.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
