package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/complyvoice/call-auditor/internal/resilience"
	"github.com/complyvoice/call-auditor/internal/transcript"
)

// fakeClient scripts completion responses and records received prompts.
type fakeClient struct {
	responses map[string]string // keyed by a substring of the prompt
	errs      []error           // popped before each successful lookup
	prompts   []string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no scripted response")
}

func fastRetry() *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func testCall(id, agentText, customerText string) transcript.Call {
	return transcript.Call{
		ID: id,
		Segments: []transcript.Segment{
			{Speaker: transcript.SpeakerAgent, Text: agentText, Start: 0, End: 5},
			{Speaker: transcript.SpeakerCustomer, Text: customerText, Start: 5, End: 10},
		},
	}
}

func TestCleanConversation(t *testing.T) {
	call := transcript.Call{
		ID: "c",
		Segments: []transcript.Segment{
			{Speaker: transcript.SpeakerAgent, Text: "Hello."},
			{Speaker: transcript.SpeakerCustomer, Text: "Hi."},
			{Speaker: transcript.SpeakerAgent, Text: "About your balance."},
		},
	}

	got := CleanConversation(call)
	want := "Agent:\nHello.\nAbout your balance.\n\nCustomer:\nHi.\n"
	if got != want {
		t.Errorf("CleanConversation mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestPrompts_ContainConversation(t *testing.T) {
	conv := "Agent:\nYou owe us money.\n\nCustomer:\nNo.\n"
	if !strings.Contains(ProfanityPrompt(conv), conv) {
		t.Error("profanity prompt must embed the conversation")
	}
	if !strings.Contains(PrivacyPrompt(conv), conv) {
		t.Error("privacy prompt must embed the conversation")
	}
	if !strings.Contains(ProfanityPrompt(conv), "agent_profanity_usage") {
		t.Error("profanity prompt must describe the response schema")
	}
	if !strings.Contains(PrivacyPrompt(conv), "verification_attempted") {
		t.Error("privacy prompt must describe the response schema")
	}
}

func TestDetectProfanity(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"you jerk": `{"agent_has_profanity": false, "customer_has_profanity": true,
				"agent_profanity_usage": [], "customer_profanity_usage": ["jerk"]}`,
			"polite": `{"agent_has_profanity": false, "customer_has_profanity": false,
				"agent_profanity_usage": [], "customer_profanity_usage": []}`,
		},
	}
	d := NewDetector(client, DetectorConfig{BatchSize: 2, Retry: fastRetry()})

	calls := []transcript.Call{
		testCall("c1", "Please pay your bill.", "No way, you jerk."),
		testCall("c2", "Good day.", "A very polite reply."),
	}
	results, err := d.DetectProfanity(context.Background(), calls)
	if err != nil {
		t.Fatalf("DetectProfanity failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results["c1"].CustomerHasProfanity {
		t.Error("expected customer profanity in c1")
	}
	if results["c2"].CustomerHasProfanity {
		t.Error("expected clean verdict for c2")
	}
}

func TestDetectPrivacy(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"$500": `{"agent_violated_privacy": true, "sensitive_info_shared": ["$500 balance"],
				"verification_attempted": false, "verification_methods": []}`,
		},
	}
	d := NewDetector(client, DetectorConfig{Retry: fastRetry()})

	calls := []transcript.Call{testCall("c1", "Your balance is $500.", "Who are you?")}
	results, err := d.DetectPrivacy(context.Background(), calls)
	if err != nil {
		t.Fatalf("DetectPrivacy failed: %v", err)
	}
	a, ok := results["c1"]
	if !ok {
		t.Fatal("expected a verdict for c1")
	}
	if !a.AgentViolatedPrivacy || a.VerificationAttempted {
		t.Errorf("unexpected verdict: %+v", a)
	}
}

func TestDetector_RateLimitRetried(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"pay": `{"agent_has_profanity": false, "customer_has_profanity": false,
				"agent_profanity_usage": [], "customer_profanity_usage": []}`,
		},
		errs: []error{errors.New("rate limit exceeded")},
	}
	d := NewDetector(client, DetectorConfig{Retry: fastRetry()})

	calls := []transcript.Call{testCall("c1", "Please pay.", "Fine.")}
	results, err := d.DetectProfanity(context.Background(), calls)
	if err != nil {
		t.Fatalf("DetectProfanity failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected rate-limited call to succeed after retry, got %d results", len(results))
	}
	if len(client.prompts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(client.prompts))
	}
}

func TestDetector_FailedBatchSkipped(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"second batch": `{"agent_has_profanity": false, "customer_has_profanity": false,
				"agent_profanity_usage": [], "customer_profanity_usage": []}`,
		},
	}
	d := NewDetector(client, DetectorConfig{BatchSize: 1, Retry: fastRetry()})

	calls := []transcript.Call{
		testCall("c1", "no scripted response for this one", "hello"),
		testCall("c2", "second batch content", "hello"),
	}
	results, err := d.DetectProfanity(context.Background(), calls)
	if err != nil {
		t.Fatalf("run should continue past a failed batch, got %v", err)
	}
	if _, ok := results["c1"]; ok {
		t.Error("failed batch must be absent from results")
	}
	if _, ok := results["c2"]; !ok {
		t.Error("later batch must still be processed")
	}
}

func TestDetector_ContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	d := NewDetector(client, DetectorConfig{Retry: fastRetry()})

	_, err := d.DetectProfanity(ctx, []transcript.Call{testCall("c1", "a", "b")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRateLimitError(t *testing.T) {
	if !IsRateLimitError(errors.New("429: Rate Limit reached")) {
		t.Error("expected rate limit string to be recognized")
	}
	if IsRateLimitError(errors.New("bad request")) {
		t.Error("expected unrelated error to not be a rate limit")
	}
	if IsRateLimitError(nil) {
		t.Error("nil is not a rate limit error")
	}
}
