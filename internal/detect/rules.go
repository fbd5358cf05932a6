// Package detect flags profanity and privacy-compliance violations in call
// transcripts, using either compiled pattern rules or an LLM backend.
package detect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Default rule lists, matching the rule set the audits were calibrated
// against. Overridable per deployment via a YAML rules file.
var (
	defaultProfanityPatterns = []string{
		`\bhell\b`,
		`\bdamn\b`,
		`\bcrap\b`,
		`\bf\*+\b`,
		`\bf\*\*\*\b`,
		`\bbullshit\b`,
		`\bf[*\-_]+k\b`,
		`\bass\b`,
		`\bshit\b`,
		`\bdumbass\b`,
		`\bjerk\b`,
		`\bidiot\b`,
		`\bstupid\b`,
		`\bfuck\b`,
		`\bbitch\b`,
		`\bastard\b`,
		`\bprick\b`,
	}

	defaultSensitivePatterns = []string{
		`\$\d+(?:,\d{3})*(?:\.\d{2})?`,    // dollar amounts
		`\bbalance.*\$?\d+`,               // balance mentions
		`\bowe.*\$?\d+`,                   // debt amounts
		`\baccount.*\d{4,}`,               // account numbers
		`\bssn?\s*:?\s*\d{3}-?\d{2}-?\d{4}`, // SSN with label
		`\b\d{3}-\d{2}-\d{4}\b`,           // bare SSN format
	}

	defaultVerificationPatterns = []string{
		`\bdate\s+of\s+birth\b`,
		`\bdob\b`,
		`\bbirthdate\b`,
		`\baddress\b`,
		`\bstreet\b`,
		`\bcity\b`,
		`\bzip\b`,
		`\bssn\b`,
		`\bsocial\s+security\b`,
		`\blast\s+four\b`,
	}
)

// RuleSet holds the compiled matching rules for all detectors. It is
// immutable after construction and safe to share across concurrent call
// analyses.
type RuleSet struct {
	profanity    []*regexp.Regexp
	sensitive    []*regexp.Regexp
	verification []*regexp.Regexp
}

// rulesFile is the YAML shape of an external rules override.
type rulesFile struct {
	Profanity     []string `yaml:"profanity"`
	SensitiveInfo []string `yaml:"sensitive_info"`
	Verification  []string `yaml:"verification"`
}

// NewRuleSet compiles the given pattern lists case-insensitively. Empty
// lists fall back to the built-in defaults for that category.
func NewRuleSet(profanity, sensitive, verification []string) (*RuleSet, error) {
	if len(profanity) == 0 {
		profanity = defaultProfanityPatterns
	}
	if len(sensitive) == 0 {
		sensitive = defaultSensitivePatterns
	}
	if len(verification) == 0 {
		verification = defaultVerificationPatterns
	}

	rs := &RuleSet{}
	var err error
	if rs.profanity, err = compileAll(profanity); err != nil {
		return nil, fmt.Errorf("profanity rules: %w", err)
	}
	if rs.sensitive, err = compileAll(sensitive); err != nil {
		return nil, fmt.Errorf("sensitive info rules: %w", err)
	}
	if rs.verification, err = compileAll(verification); err != nil {
		return nil, fmt.Errorf("verification rules: %w", err)
	}
	return rs, nil
}

// DefaultRuleSet compiles the built-in rules.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(nil, nil, nil)
	if err != nil {
		// Built-in patterns are literals; this cannot happen.
		panic(err)
	}
	return rs
}

// LoadRuleSet reads pattern overrides from a YAML file and compiles them.
// Categories absent from the file keep the built-in defaults.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return NewRuleSet(rf.Profanity, rf.SensitiveInfo, rf.Verification)
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
