package transcript

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidInput marks transcripts that fail validation: empty calls,
// segments with end < start, or records missing required fields. Malformed
// upstream data is normalized to this error here, at the loader boundary,
// so the analysis packages never see it.
var ErrInvalidInput = errors.New("invalid transcript input")

// rawSegment mirrors the reference JSON shape. Pointer fields distinguish
// a missing key from a zero value.
type rawSegment struct {
	Speaker *string  `json:"speaker"`
	Text    *string  `json:"text"`
	Start   *float64 `json:"stime"`
	End     *float64 `json:"etime"`
}

// Parse decodes one call's transcript JSON (an array of utterance records)
// and validates every segment. The returned call's segments preserve file
// order; sorting by start time is the analyzer's job.
func Parse(callID string, data []byte) (Call, error) {
	var raw []rawSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		return Call{}, fmt.Errorf("call %s: decode transcript: %v: %w", callID, err, ErrInvalidInput)
	}
	if len(raw) == 0 {
		return Call{}, fmt.Errorf("call %s: no segments: %w", callID, ErrInvalidInput)
	}

	segments := make([]Segment, 0, len(raw))
	for i, r := range raw {
		if r.Speaker == nil || r.Start == nil || r.End == nil {
			return Call{}, fmt.Errorf("call %s: segment %d: missing speaker/stime/etime: %w", callID, i, ErrInvalidInput)
		}
		if *r.Start < 0 {
			return Call{}, fmt.Errorf("call %s: segment %d: negative start time %.3f: %w", callID, i, *r.Start, ErrInvalidInput)
		}
		if *r.End < *r.Start {
			return Call{}, fmt.Errorf("call %s: segment %d: end %.3f before start %.3f: %w", callID, i, *r.End, *r.Start, ErrInvalidInput)
		}
		text := ""
		if r.Text != nil {
			text = *r.Text
		}
		segments = append(segments, Segment{
			Speaker: Speaker(*r.Speaker),
			Text:    text,
			Start:   *r.Start,
			End:     *r.End,
		})
	}

	return Call{ID: callID, Segments: segments}, nil
}

// LoadZip reads every *.json entry from a zip archive of per-call
// transcripts. The call id is the file stem. Calls are returned sorted by
// id so batch output is deterministic.
func LoadZip(r io.ReaderAt, size int64) ([]Call, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open transcript archive: %v: %w", err, ErrInvalidInput)
	}

	var calls []Call
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".json") || strings.HasPrefix(filepath.Base(f.Name), ".") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		call, err := Parse(callIDFromName(f.Name), data)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("archive contains no transcript files: %w", ErrInvalidInput)
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].ID < calls[j].ID })
	return calls, nil
}

// LoadDir reads every *.json transcript from a directory on disk.
func LoadDir(dir string) ([]Call, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read transcript directory: %w", err)
	}

	var calls []Call
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		call, err := Parse(callIDFromName(e.Name()), data)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("directory %s contains no transcript files: %w", dir, ErrInvalidInput)
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].ID < calls[j].ID })
	return calls, nil
}

func callIDFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
