package llm

// ProfanityAnalysis is the structured verdict the model returns for one
// call's profanity audit.
type ProfanityAnalysis struct {
	AgentHasProfanity      bool     `json:"agent_has_profanity"`
	CustomerHasProfanity   bool     `json:"customer_has_profanity"`
	AgentProfanityUsage    []string `json:"agent_profanity_usage"`
	CustomerProfanityUsage []string `json:"customer_profanity_usage"`
}

// PrivacyAnalysis is the structured verdict the model returns for one
// call's compliance audit.
type PrivacyAnalysis struct {
	AgentViolatedPrivacy  bool     `json:"agent_violated_privacy"`
	SensitiveInfoShared   []string `json:"sensitive_info_shared"`
	VerificationAttempted bool     `json:"verification_attempted"`
	VerificationMethods   []string `json:"verification_methods"`
}
