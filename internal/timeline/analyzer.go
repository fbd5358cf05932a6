// Package timeline derives overlap events, silence gaps and aggregate talk
// metrics from a call's timestamped speech segments.
package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/complyvoice/call-auditor/internal/transcript"
)

// ErrZeroDuration is returned by Metrics when the call's total duration is
// zero, since every percentage metric is undefined then.
var ErrZeroDuration = errors.New("call has zero total duration")

// Overlap is a time range where two speakers' segments are both active.
type Overlap struct {
	Start    float64              `json:"start_time"`
	End      float64              `json:"end_time"`
	Duration float64              `json:"duration"`
	Speakers []transcript.Speaker `json:"speakers"`
}

// Silence is a time range within the call span where nobody speaks.
type Silence struct {
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
	Duration float64 `json:"duration"`
}

// Metrics aggregates overlap, silence and per-speaker talk time for one call.
// Speaking time is not overlap-adjusted: time where both parties talk counts
// toward both totals, so the talk percentages need not sum to 100.
type Metrics struct {
	TotalDuration          float64   `json:"total_duration"`
	TotalOverlapTime       float64   `json:"total_overlap_time"`
	TotalSilenceTime       float64   `json:"total_silence_time"`
	OverlapPercentage      float64   `json:"overlap_percentage"`
	SilencePercentage      float64   `json:"silence_percentage"`
	AgentSpeakingTime      float64   `json:"agent_speaking_time"`
	CustomerSpeakingTime   float64   `json:"customer_speaking_time"`
	AgentTalkPercentage    float64   `json:"agent_talk_percentage"`
	CustomerTalkPercentage float64   `json:"customer_talk_percentage"`
	Overlaps               []Overlap `json:"overlaps"`
	Silences               []Silence `json:"silences"`
	NumOverlaps            int       `json:"num_overlaps"`
	NumSilences            int       `json:"num_silences"`
}

// Analyzer computes timeline analysis for a single call. It is a pure
// function of its input: the segment slice is copied and sorted once at
// construction and every operation returns freshly derived values.
type Analyzer struct {
	segments  []transcript.Segment // stable-sorted by start time
	callStart float64
	callEnd   float64

	merged []interval // lazily built disjoint speech cover
}

type interval struct {
	start, end float64
}

// NewAnalyzer validates the call and prepares it for analysis. It fails
// with an error wrapping transcript.ErrInvalidInput when the call has no
// segments or any segment ends before it starts.
func NewAnalyzer(call transcript.Call) (*Analyzer, error) {
	if len(call.Segments) == 0 {
		return nil, fmt.Errorf("call %s has no segments: %w", call.ID, transcript.ErrInvalidInput)
	}
	for i, s := range call.Segments {
		if s.End < s.Start {
			return nil, fmt.Errorf("call %s: segment %d ends before it starts: %w", call.ID, i, transcript.ErrInvalidInput)
		}
	}

	segments := make([]transcript.Segment, len(call.Segments))
	copy(segments, call.Segments)
	// Stable keeps the original order for segments sharing a start time, so
	// overlap speaker pairs come out deterministic.
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	callStart := segments[0].Start
	callEnd := segments[0].End
	for _, s := range segments[1:] {
		if s.End > callEnd {
			callEnd = s.End
		}
	}

	return &Analyzer{segments: segments, callStart: callStart, callEnd: callEnd}, nil
}

// CallStart returns the earliest segment start time.
func (a *Analyzer) CallStart() float64 { return a.callStart }

// CallEnd returns the latest segment end time.
func (a *Analyzer) CallEnd() float64 { return a.callEnd }

// Overlaps detects overlapping speech between consecutive segments in start
// order, ascending by start time. Zero-length touch points are not overlaps.
//
// Only adjacent pairs are compared. A segment fully nested inside a longer
// one can hide an overlap between that longer segment and the one after the
// nested segment. This adjacent-pair semantics matches the reference
// analysis and is kept for output compatibility.
func (a *Analyzer) Overlaps() []Overlap {
	var overlaps []Overlap
	for i := 0; i < len(a.segments)-1; i++ {
		current, next := a.segments[i], a.segments[i+1]
		if current.End <= next.Start {
			continue
		}
		start := current.Start
		if next.Start > start {
			start = next.Start
		}
		end := current.End
		if next.End < end {
			end = next.End
		}
		if end-start <= 0 {
			continue
		}
		overlaps = append(overlaps, Overlap{
			Start:    start,
			End:      end,
			Duration: end - start,
			Speakers: []transcript.Speaker{current.Speaker, next.Speaker},
		})
	}
	return overlaps
}

// Silences returns every maximal gap within [CallStart, CallEnd] where no
// segment is active, ascending by start time.
func (a *Analyzer) Silences() []Silence {
	merged := a.mergedIntervals()

	var silences []Silence
	if merged[0].start > a.callStart {
		silences = append(silences, Silence{
			Start:    a.callStart,
			End:      merged[0].start,
			Duration: merged[0].start - a.callStart,
		})
	}
	for i := 0; i < len(merged)-1; i++ {
		gapStart, gapEnd := merged[i].end, merged[i+1].start
		if gapEnd > gapStart {
			silences = append(silences, Silence{
				Start:    gapStart,
				End:      gapEnd,
				Duration: gapEnd - gapStart,
			})
		}
	}
	if last := merged[len(merged)-1]; last.end < a.callEnd {
		silences = append(silences, Silence{
			Start:    last.end,
			End:      a.callEnd,
			Duration: a.callEnd - last.end,
		})
	}
	return silences
}

// mergedIntervals coalesces all segment spans, regardless of speaker, into a
// minimal ordered set of disjoint "someone is speaking" intervals. Touching
// intervals (next.start == running.end) merge: there is no gap between them.
func (a *Analyzer) mergedIntervals() []interval {
	if a.merged != nil {
		return a.merged
	}

	merged := make([]interval, 0, len(a.segments))
	for _, s := range a.segments {
		if n := len(merged); n > 0 && s.Start <= merged[n-1].end {
			if s.End > merged[n-1].end {
				merged[n-1].end = s.End
			}
			continue
		}
		merged = append(merged, interval{start: s.Start, end: s.End})
	}
	a.merged = merged
	return merged
}

// Metrics computes the aggregate view of the call. Total duration is the
// maximum segment end time, not the span from the first start: recordings
// begin at time zero, and leading dead air before the first utterance still
// belongs to the call. Returns ErrZeroDuration when that total is zero.
func (a *Analyzer) Metrics() (Metrics, error) {
	if a.callEnd == 0 {
		return Metrics{}, fmt.Errorf("call ends at t=0: %w", ErrZeroDuration)
	}

	overlaps := a.Overlaps()
	silences := a.Silences()

	m := Metrics{
		TotalDuration: a.callEnd,
		Overlaps:      overlaps,
		Silences:      silences,
		NumOverlaps:   len(overlaps),
		NumSilences:   len(silences),
	}
	for _, o := range overlaps {
		m.TotalOverlapTime += o.Duration
	}
	for _, s := range silences {
		m.TotalSilenceTime += s.Duration
	}
	for _, s := range a.segments {
		switch {
		case s.Speaker.IsAgent():
			m.AgentSpeakingTime += s.Duration()
		case s.Speaker.IsCustomer():
			m.CustomerSpeakingTime += s.Duration()
		}
	}

	m.OverlapPercentage = m.TotalOverlapTime / m.TotalDuration * 100
	m.SilencePercentage = m.TotalSilenceTime / m.TotalDuration * 100
	m.AgentTalkPercentage = m.AgentSpeakingTime / m.TotalDuration * 100
	m.CustomerTalkPercentage = m.CustomerSpeakingTime / m.TotalDuration * 100

	return m, nil
}
