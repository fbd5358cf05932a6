// Package api exposes the batch analysis endpoints: transcript archives in,
// audit summaries out.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/complyvoice/call-auditor/internal/config"
	"github.com/complyvoice/call-auditor/internal/detect"
	"github.com/complyvoice/call-auditor/internal/detect/llm"
	"github.com/complyvoice/call-auditor/internal/observability"
	"github.com/complyvoice/call-auditor/internal/report"
	"github.com/complyvoice/call-auditor/internal/timeline"
	"github.com/complyvoice/call-auditor/internal/transcript"
)

const maxUploadBytes = 64 << 20

// Handler serves the analysis endpoints. The pattern detector and the
// optional LLM detector are constructed once and shared across requests;
// both are stateless after construction.
type Handler struct {
	cfg      *config.Config
	patterns *detect.PatternDetector
	llm      *llm.Detector  // nil when no LLM backend is configured
	writer   *report.Writer // nil when report persistence is disabled
}

// NewHandler wires the analysis endpoints.
func NewHandler(cfg *config.Config, patterns *detect.PatternDetector, llmDetector *llm.Detector, writer *report.Writer) *Handler {
	return &Handler{cfg: cfg, patterns: patterns, llm: llmDetector, writer: writer}
}

// Register attaches all analysis routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/analyze/profanity", h.handleProfanity)
	mux.HandleFunc("/analyze/privacy", h.handlePrivacy)
	mux.HandleFunc("/analyze/timeline", h.handleTimeline)
}

// parseUpload extracts the transcript archive from a multipart request.
func parseUpload(r *http.Request) ([]transcript.Call, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parse upload: %v: %w", err, transcript.ErrInvalidInput)
	}
	file, _, err := r.FormFile("transcripts")
	if err != nil {
		return nil, fmt.Errorf("missing 'transcripts' archive: %w", transcript.ErrInvalidInput)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return transcript.LoadZip(bytes.NewReader(data), int64(len(data)))
}

func (h *Handler) handleProfanity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	calls, err := parseUpload(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	observability.RecordBatch(len(calls))

	logger := observability.WithRunID("")
	method := analysisMethod(r)

	var results []detect.ProfanityResult
	switch method {
	case "llm":
		if h.llm == nil {
			writeError(w, http.StatusBadRequest, "LLM analysis is not configured")
			return
		}
		analyses, err := h.llm.DetectProfanity(r.Context(), calls)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, call := range calls {
			a, ok := analyses[call.ID]
			if !ok {
				continue
			}
			results = append(results, detect.ProfanityResult{
				CallID:               call.ID,
				AgentHasProfanity:    a.AgentHasProfanity,
				CustomerHasProfanity: a.CustomerHasProfanity,
				AgentUsage:           a.AgentProfanityUsage,
				CustomerUsage:        a.CustomerProfanityUsage,
			})
		}
	default:
		for _, call := range calls {
			start := time.Now()
			results = append(results, h.patterns.DetectProfanity(call))
			observability.RecordCallAnalyzed("profanity", time.Since(start))
		}
	}

	summary := report.BuildProfanitySummary(len(calls), results)
	for range summary.AgentDetails {
		observability.RecordViolation("agent_profanity")
	}
	for range summary.CustomerDetails {
		observability.RecordViolation("customer_profanity")
	}
	logger.Info().
		Str("method", method).
		Int("calls", len(calls)).
		Int("agent_hits", summary.AgentCalls).
		Int("customer_hits", summary.CustomerCalls).
		Msg("Profanity analysis complete")

	h.persist("profanity", method, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	calls, err := parseUpload(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	observability.RecordBatch(len(calls))

	logger := observability.WithRunID("")
	method := analysisMethod(r)

	var results []detect.PrivacyResult
	switch method {
	case "llm":
		if h.llm == nil {
			writeError(w, http.StatusBadRequest, "LLM analysis is not configured")
			return
		}
		analyses, err := h.llm.DetectPrivacy(r.Context(), calls)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, call := range calls {
			a, ok := analyses[call.ID]
			if !ok {
				continue
			}
			results = append(results, detect.PrivacyResult{
				CallID: call.ID,
				// The model's own flag is cross-checked against its
				// verification finding, as the reference audit does.
				AgentViolatedPrivacy:  a.AgentViolatedPrivacy && !a.VerificationAttempted,
				SensitiveInfoShared:   a.SensitiveInfoShared,
				VerificationAttempted: a.VerificationAttempted,
				VerificationMethods:   a.VerificationMethods,
			})
		}
	default:
		for _, call := range calls {
			start := time.Now()
			results = append(results, h.patterns.DetectPrivacyViolation(call))
			observability.RecordCallAnalyzed("privacy", time.Since(start))
		}
	}

	summary := report.BuildPrivacySummary(len(calls), results)
	for range summary.Details {
		observability.RecordViolation("privacy")
	}
	logger.Info().
		Str("method", method).
		Int("calls", len(calls)).
		Int("violations", summary.Violations).
		Msg("Privacy analysis complete")

	h.persist("privacy", method, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	calls, err := parseUpload(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	observability.RecordBatch(len(calls))

	summary := h.analyzeTimelines(calls)

	logger := observability.WithRunID("")
	logger.Info().
		Int("calls", len(calls)).
		Int("analyzed", summary.Analyzed).
		Int("failed", len(summary.Errors)).
		Msg("Timeline analysis complete")

	h.persist("timeline", "interval", summary)
	writeJSON(w, http.StatusOK, summary)
}

// analyzeTimelines fans the per-call analyses out over a bounded worker
// pool. Each call's analysis is independent, so no coordination beyond
// collecting results is needed.
func (h *Handler) analyzeTimelines(calls []transcript.Call) report.TimelineSummary {
	type outcome struct {
		timeline report.CallTimeline
		err      error
	}

	workers := h.cfg.AnalysisWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(calls) {
		workers = len(calls)
	}

	jobs := make(chan int)
	outcomes := make([]outcome, len(calls))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				m, err := analyzeCall(calls[i])
				if err != nil {
					outcomes[i] = outcome{err: fmt.Errorf("call %s: %w", calls[i].ID, err)}
					observability.RecordError("analysis", "timeline")
					continue
				}
				observability.RecordCallAnalyzed("timeline", time.Since(start))
				observability.RecordTimelineFindings(m.NumOverlaps, m.NumSilences)
				outcomes[i] = outcome{timeline: report.CallTimeline{CallID: calls[i].ID, Metrics: m}}
			}
		}()
	}
	for i := range calls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := report.TimelineSummary{TotalCalls: len(calls)}
	for i, o := range outcomes {
		if o.err != nil {
			summary.Errors = append(summary.Errors, report.CallError{CallID: calls[i].ID, Error: o.err.Error()})
			continue
		}
		summary.Analyzed++
		summary.Calls = append(summary.Calls, o.timeline)
	}
	return summary
}

func analyzeCall(call transcript.Call) (timeline.Metrics, error) {
	analyzer, err := timeline.NewAnalyzer(call)
	if err != nil {
		return timeline.Metrics{}, err
	}
	return analyzer.Metrics()
}

func analysisMethod(r *http.Request) string {
	if r.URL.Query().Get("method") == "llm" {
		return "llm"
	}
	return "pattern"
}

func (h *Handler) persist(task, method string, result any) {
	if h.writer == nil {
		return
	}
	path, err := h.writer.Write(task, method, result)
	if err != nil {
		zlog.Error().Err(err).Str("task", task).Msg("Failed to persist report")
		observability.RecordError("persist", "report")
		return
	}
	zlog.Debug().Str("path", path).Msg("Report persisted")
}

func writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, transcript.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
