package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/complyvoice/call-auditor/internal/observability"
	"github.com/complyvoice/call-auditor/internal/resilience"
	"github.com/complyvoice/call-auditor/internal/transcript"
)

// Detector audits batches of calls through the LLM backend. Rate-limited
// requests are retried with backoff; a batch that keeps failing for other
// reasons is skipped and the run continues. The circuit breaker stops a
// run from hammering a backend that is down outright.
type Detector struct {
	client    Client
	batchSize int
	retry     *resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
}

// DetectorConfig configures batch processing.
type DetectorConfig struct {
	BatchSize int                     // calls per batch, default 5
	Retry     *resilience.RetryConfig // nil uses resilience defaults
	Breaker   *resilience.CircuitBreaker
}

// NewDetector wraps a completion client for batch audits.
func NewDetector(client Client, cfg DetectorConfig) *Detector {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Detector{
		client:    client,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
		breaker:   cfg.Breaker,
	}
}

// DetectProfanity audits every call and returns verdicts keyed by call id.
// Calls whose batch failed are absent from the map.
func (d *Detector) DetectProfanity(ctx context.Context, calls []transcript.Call) (map[string]*ProfanityAnalysis, error) {
	results := make(map[string]*ProfanityAnalysis, len(calls))
	err := d.runBatches(ctx, calls, func(call transcript.Call, raw string) error {
		var analysis ProfanityAnalysis
		if err := json.Unmarshal([]byte(stripFences(raw)), &analysis); err != nil {
			return fmt.Errorf("parse profanity analysis for call %s: %w", call.ID, err)
		}
		results[call.ID] = &analysis
		return nil
	}, func(call transcript.Call) string {
		return ProfanityPrompt(CleanConversation(call))
	})
	return results, err
}

// DetectPrivacy audits every call for compliance violations, keyed by
// call id. Calls whose batch failed are absent from the map.
func (d *Detector) DetectPrivacy(ctx context.Context, calls []transcript.Call) (map[string]*PrivacyAnalysis, error) {
	results := make(map[string]*PrivacyAnalysis, len(calls))
	err := d.runBatches(ctx, calls, func(call transcript.Call, raw string) error {
		var analysis PrivacyAnalysis
		if err := json.Unmarshal([]byte(stripFences(raw)), &analysis); err != nil {
			return fmt.Errorf("parse privacy analysis for call %s: %w", call.ID, err)
		}
		results[call.ID] = &analysis
		return nil
	}, func(call transcript.Call) string {
		return PrivacyPrompt(CleanConversation(call))
	})
	return results, err
}

// runBatches walks the calls in batches, completing one prompt per call.
// Only context cancellation aborts the run.
func (d *Detector) runBatches(ctx context.Context, calls []transcript.Call,
	record func(transcript.Call, string) error, prompt func(transcript.Call) string) error {

	for start := 0; start < len(calls); start += d.batchSize {
		end := start + d.batchSize
		if end > len(calls) {
			end = len(calls)
		}
		batch := calls[start:end]

		if err := d.runBatch(ctx, batch, record, prompt); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			zlog.Warn().
				Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("LLM batch failed, skipping")
		}
	}
	return nil
}

func (d *Detector) runBatch(ctx context.Context, batch []transcript.Call,
	record func(transcript.Call, string) error, prompt func(transcript.Call) string) error {

	for _, call := range batch {
		var raw string
		err := resilience.Retry(ctx, func() error {
			start := time.Now()
			var completeErr error
			if d.breaker != nil {
				completeErr = d.breaker.Call(func() error {
					var innerErr error
					raw, innerErr = d.client.Complete(ctx, prompt(call))
					return innerErr
				})
				observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))
			} else {
				raw, completeErr = d.client.Complete(ctx, prompt(call))
			}
			if !errors.Is(completeErr, resilience.ErrCircuitOpen) {
				observability.RecordLLMRequest(completeErr == nil, time.Since(start))
			}
			return completeErr
		}, d.retry, func(err error) bool {
			return IsRateLimitError(err)
		})
		if err != nil {
			return fmt.Errorf("call %s: %w", call.ID, err)
		}
		if err := record(call, raw); err != nil {
			return err
		}
	}
	return nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite the response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
