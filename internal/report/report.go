// Package report aggregates per-call findings into batch summaries and
// persists analysis runs as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/complyvoice/call-auditor/internal/detect"
	"github.com/complyvoice/call-auditor/internal/timeline"
)

// ProfanitySummary is the batch-level view of a profanity audit. Rates are
// percentages rounded to one decimal, computed against the number of calls
// processed.
type ProfanitySummary struct {
	TotalCalls         int                      `json:"total_calls"`
	AgentCalls         int                      `json:"agent_profanity_calls"`
	CustomerCalls      int                      `json:"customer_profanity_calls"`
	AgentViolationRate float64                  `json:"agent_violation_rate"`
	AgentDetails       []detect.ProfanityResult `json:"agent_details"`
	CustomerDetails    []detect.ProfanityResult `json:"customer_details"`
}

// PrivacySummary is the batch-level view of a compliance audit.
type PrivacySummary struct {
	TotalCalls     int                    `json:"total_calls"`
	Violations     int                    `json:"violations_detected"`
	ViolationRate  float64                `json:"violation_rate"`
	ComplianceRate float64                `json:"compliance_rate"`
	Details        []detect.PrivacyResult `json:"details"`
}

// CallTimeline is one call's timeline analysis within a batch.
type CallTimeline struct {
	CallID  string           `json:"id"`
	Metrics timeline.Metrics `json:"metrics"`
}

// TimelineSummary is the batch-level view of a timeline analysis. Calls
// that failed validation are listed with their error instead of metrics.
type TimelineSummary struct {
	TotalCalls int            `json:"total_calls"`
	Analyzed   int            `json:"analyzed"`
	Calls      []CallTimeline `json:"calls"`
	Errors     []CallError    `json:"errors,omitempty"`
}

// CallError records why one call could not be analyzed.
type CallError struct {
	CallID string `json:"id"`
	Error  string `json:"error"`
}

// BuildProfanitySummary keeps only calls where profanity was found, split
// by party, mirroring the audit's detail tables.
func BuildProfanitySummary(totalCalls int, results []detect.ProfanityResult) ProfanitySummary {
	s := ProfanitySummary{TotalCalls: totalCalls}
	for _, r := range results {
		if r.AgentHasProfanity {
			s.AgentCalls++
			s.AgentDetails = append(s.AgentDetails, r)
		}
		if r.CustomerHasProfanity {
			s.CustomerCalls++
			s.CustomerDetails = append(s.CustomerDetails, r)
		}
	}
	if totalCalls > 0 {
		s.AgentViolationRate = round1(float64(s.AgentCalls) / float64(totalCalls) * 100)
	}
	return s
}

// BuildPrivacySummary keeps only violating calls and derives the batch
// violation and compliance rates.
func BuildPrivacySummary(totalCalls int, results []detect.PrivacyResult) PrivacySummary {
	s := PrivacySummary{TotalCalls: totalCalls}
	for _, r := range results {
		if r.AgentViolatedPrivacy {
			s.Violations++
			s.Details = append(s.Details, r)
		}
	}
	if totalCalls > 0 {
		s.ViolationRate = round1(float64(s.Violations) / float64(totalCalls) * 100)
		s.ComplianceRate = round1(100 - s.ViolationRate)
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Run is the persisted bundle of one analysis run.
type Run struct {
	RunID       string    `json:"run_id"`
	Task        string    `json:"task"`
	Method      string    `json:"method"`
	GeneratedAt time.Time `json:"generated_at"`
	Result      any       `json:"result"`
}

// Writer persists analysis runs under a root directory, one timestamped
// subdirectory per run.
type Writer struct {
	root string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{root: dir}
}

// Write persists one run and returns the path of the written report.
func (w *Writer) Write(task, method string, result any) (string, error) {
	runID := fmt.Sprintf("run_%s_%s", time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	dir := filepath.Join(w.root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, task+".json")
	run := Run{
		RunID:       runID,
		Task:        task,
		Method:      method,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
	}
	if err := WriteJSON(path, run); err != nil {
		return "", err
	}
	return path, nil
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
