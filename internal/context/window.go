package ctxengine

import (
	"github.com/flemzord/tgrelay/internal/history"
	"github.com/flemzord/tgrelay/internal/provider"
)

// BuildWindow assembles the messages for one completion call: the system
// prompt, the stored turns selected by policy, then the new user message.
// turns is only read.
func BuildWindow(turns []history.Turn, newUserText string, policy Policy, systemPrompt string) []provider.LLMMessage {
	selected := selectTurns(turns, policy)

	msgs := make([]provider.LLMMessage, 0, len(selected)+2)
	msgs = append(msgs, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: systemPrompt,
	})
	for _, t := range selected {
		msgs = append(msgs, provider.LLMMessage{
			Role:    roleFor(t.Role),
			Content: t.Content,
		})
	}
	msgs = append(msgs, provider.LLMMessage{
		Role:    provider.MessageRoleUser,
		Content: newUserText,
	})
	return msgs
}

// selectTurns returns the tail of turns allowed by policy. A count below
// zero is clamped to zero.
func selectTurns(turns []history.Turn, policy Policy) []history.Turn {
	if !policy.Limited() {
		return turns
	}
	n := max(policy.Count(), 0)
	if n >= len(turns) {
		return turns
	}
	return turns[len(turns)-n:]
}

func roleFor(r history.Role) provider.MessageRole {
	if r == history.RoleAssistant {
		return provider.MessageRoleAssistant
	}
	return provider.MessageRoleUser
}
