package resilience

import (
	"errors"
	"testing"
	"time"
)

func failing() error { return errors.New("backend down") }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("llm", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Call(failing); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	if cb.State() != StateOpen {
		t.Errorf("expected open state after 3 failures, got %v", cb.State())
	}
	if err := cb.Call(failing); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("llm", 3, time.Minute)

	cb.Call(failing)
	cb.Call(failing)
	cb.Call(func() error { return nil })
	cb.Call(failing)
	cb.Call(failing)

	if cb.State() != StateClosed {
		t.Errorf("expected closed state after interleaved success, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("llm", 1, 10*time.Millisecond)

	cb.Call(failing)
	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// Probe requests succeed; circuit closes after halfOpenMax successes.
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed state after recovery, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("llm", 1, 10*time.Millisecond)

	cb.Call(failing)
	time.Sleep(20 * time.Millisecond)

	cb.Call(failing)
	if cb.State() != StateOpen {
		t.Errorf("expected re-opened state after half-open failure, got %v", cb.State())
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker("llm", 10, time.Minute)

	cb.Call(func() error { return nil })
	cb.Call(failing)

	requests, failures, rate := cb.Stats()
	if requests != 2 || failures != 1 {
		t.Errorf("expected 2 requests / 1 failure, got %d / %d", requests, failures)
	}
	if rate != 50 {
		t.Errorf("expected 50%% failure rate, got %v", rate)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("llm", 1, time.Hour)

	cb.Call(failing)
	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected closed state after reset, got %v", cb.State())
	}
}
