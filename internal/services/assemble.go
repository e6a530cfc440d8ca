// Package services – conversation assembly.
//
// This file converts persisted channel history into the role-tagged dialogue
// sent to the AI agent. The output is recomputed fresh per call; nothing is
// cached across requests.
package services

import (
	"github.com/botdo/go-relay-backend/internal/agent"
	"github.com/botdo/go-relay-backend/internal/domain"
)

// AssembleDialogue maps persisted messages (already ordered oldest→newest)
// into agent dialogue turns. Bot-authored messages become assistant turns,
// everything else a user turn; messages with an empty body are dropped.
//
// When currentText is not already present among the produced turns it is
// appended as a trailing user turn. This guards against the just-saved
// inbound message not yet being visible to the history read; exact-text
// matching is a heuristic, not a content-equality contract.
func AssembleDialogue(history []domain.Message, currentText string) []agent.Turn {
	turns := make([]agent.Turn, 0, len(history)+1)
	for _, m := range history {
		if m.Text == "" {
			continue
		}
		role := agent.RoleUser
		if m.SenderType == domain.SenderBot {
			role = agent.RoleAssistant
		}
		turns = append(turns, agent.Turn{Role: role, Content: m.Text})
	}

	if currentText != "" {
		found := false
		for _, t := range turns {
			if t.Content == currentText {
				found = true
				break
			}
		}
		if !found {
			turns = append(turns, agent.Turn{Role: agent.RoleUser, Content: currentText})
		}
	}
	return turns
}
