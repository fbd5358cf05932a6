package detect

import (
	"regexp"

	"github.com/complyvoice/call-auditor/internal/transcript"
)

// ProfanityResult is one call's profanity findings, per speaker. Usage
// lists are deduplicated in first-seen order.
type ProfanityResult struct {
	CallID               string   `json:"id"`
	AgentHasProfanity    bool     `json:"agent_has_profanity"`
	CustomerHasProfanity bool     `json:"customer_has_profanity"`
	AgentUsage           []string `json:"agent_profanity_usage"`
	CustomerUsage        []string `json:"customer_profanity_usage"`
}

// PrivacyResult is one call's compliance findings. A violation means the
// agent shared sensitive account information on a call where no identity
// verification was ever attempted.
type PrivacyResult struct {
	CallID                string   `json:"id"`
	AgentViolatedPrivacy  bool     `json:"agent_violated_privacy"`
	SensitiveInfoShared   []string `json:"sensitive_info_shared"`
	VerificationAttempted bool     `json:"verification_attempted"`
	VerificationMethods   []string `json:"verification_methods"`
}

// PatternDetector runs the compiled rule set over transcripts. It holds no
// per-call state; one detector serves any number of concurrent analyses.
type PatternDetector struct {
	rules *RuleSet
}

// NewPatternDetector creates a detector over the given rules, falling back
// to the built-in rule set when rules is nil.
func NewPatternDetector(rules *RuleSet) *PatternDetector {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &PatternDetector{rules: rules}
}

// DetectProfanity scans every utterance and attributes matches to the
// speaking party.
func (d *PatternDetector) DetectProfanity(call transcript.Call) ProfanityResult {
	var agentHits, customerHits []string

	for _, seg := range call.Segments {
		var found []string
		for _, re := range d.rules.profanity {
			found = append(found, re.FindAllString(seg.Text, -1)...)
		}
		if len(found) == 0 {
			continue
		}
		switch {
		case seg.Speaker.IsAgent():
			agentHits = append(agentHits, found...)
		case seg.Speaker.IsCustomer():
			customerHits = append(customerHits, found...)
		}
	}

	agentHits = dedupe(agentHits)
	customerHits = dedupe(customerHits)

	return ProfanityResult{
		CallID:               call.ID,
		AgentHasProfanity:    len(agentHits) > 0,
		CustomerHasProfanity: len(customerHits) > 0,
		AgentUsage:           agentHits,
		CustomerUsage:        customerHits,
	}
}

// DetectPrivacyViolation scans agent utterances for sensitive disclosures
// and for identity-verification attempts. Only agent turns matter: the
// customer reciting their own details is not a disclosure.
func (d *PatternDetector) DetectPrivacyViolation(call transcript.Call) PrivacyResult {
	var shared, methods []string
	verificationAttempted := false

	for _, seg := range call.Segments {
		if !seg.Speaker.IsAgent() {
			continue
		}
		for _, re := range d.rules.sensitive {
			shared = append(shared, re.FindAllString(seg.Text, -1)...)
		}
		for _, re := range d.rules.verification {
			if re.MatchString(seg.Text) {
				verificationAttempted = true
				methods = append(methods, describePattern(re))
			}
		}
	}

	shared = dedupe(shared)
	methods = dedupe(methods)

	return PrivacyResult{
		CallID:                call.ID,
		AgentViolatedPrivacy:  len(shared) > 0 && !verificationAttempted,
		SensitiveInfoShared:   shared,
		VerificationAttempted: verificationAttempted,
		VerificationMethods:   methods,
	}
}

// describePattern reports which verification rule fired, stripping the
// case-insensitivity prefix added at compile time.
func describePattern(re *regexp.Regexp) string {
	s := re.String()
	if len(s) > 4 && s[:4] == `(?i)` {
		return s[4:]
	}
	return s
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
