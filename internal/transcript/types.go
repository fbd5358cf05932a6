package transcript

import "strings"

// Speaker identifies which party of the call produced an utterance.
type Speaker string

const (
	SpeakerAgent    Speaker = "Agent"
	SpeakerCustomer Speaker = "Customer"
)

// IsAgent reports whether the speaker label denotes the collection agent.
// Upstream transcription labels are not perfectly uniform ("Agent",
// "agent_1"), so matching is case-insensitive on the substring.
func (s Speaker) IsAgent() bool {
	return strings.Contains(strings.ToLower(string(s)), "agent")
}

// IsCustomer reports whether the speaker label denotes the customer.
func (s Speaker) IsCustomer() bool {
	return strings.Contains(strings.ToLower(string(s)), "customer")
}

// Segment is one contiguous speaker utterance with its time span in seconds
// from the start of the recording.
type Segment struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"stime"`
	End     float64 `json:"etime"`
}

// Duration returns the length of the utterance in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Call is a single recorded conversation: an ordered sequence of segments
// keyed by an opaque call id (the transcript file stem in the reference
// storage format).
type Call struct {
	ID       string    `json:"id"`
	Segments []Segment `json:"segments"`
}
