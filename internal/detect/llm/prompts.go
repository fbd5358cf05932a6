package llm

import (
	"fmt"
	"strings"

	"github.com/complyvoice/call-auditor/internal/transcript"
)

// CleanConversation flattens a call into the two-block text form the
// prompts expect: all agent lines, then all customer lines.
func CleanConversation(call transcript.Call) string {
	var agent, customer strings.Builder
	for _, seg := range call.Segments {
		switch {
		case seg.Speaker.IsAgent():
			agent.WriteString(seg.Text)
			agent.WriteByte('\n')
		case seg.Speaker.IsCustomer():
			customer.WriteString(seg.Text)
			customer.WriteByte('\n')
		}
	}
	return fmt.Sprintf("Agent:\n%s\nCustomer:\n%s", agent.String(), customer.String())
}

// ProfanityPrompt builds the profanity-audit prompt for one conversation.
func ProfanityPrompt(conversation string) string {
	return fmt.Sprintf(`Analyze this debt collection conversation for profanity usage.

Conversation:
%s

Instructions:
- Identify profanity by Agent and Customer (mild or strong)
- Include censored profanity (f***, s***)
- Provide exact words/phrases

Respond with JSON:
{
    "agent_has_profanity": boolean,
    "customer_has_profanity": boolean,
    "agent_profanity_usage": [list],
    "customer_profanity_usage": [list]
}`, conversation)
}

// PrivacyPrompt builds the compliance-audit prompt for one conversation.
func PrivacyPrompt(conversation string) string {
	return fmt.Sprintf(`Analyze this debt collection conversation for privacy compliance violations.

Conversation:
%s

Instructions:
- Did the agent share sensitive information (account balance, payment amounts, account details) WITHOUT proper identity verification?
- Look for verification attempts: asking for DOB, address, SSN, security questions
- Identify what sensitive information was shared
- Determine if verification occurred BEFORE sharing sensitive data

Respond with JSON:
{
    "agent_violated_privacy": boolean,
    "sensitive_info_shared": [list],
    "verification_attempted": boolean,
    "verification_methods": [list]
}`, conversation)
}
