// Package dialogue turns a turn outcome into the assistant's reply text.
// The state machine decides what happened; a Phraser only says it.
package dialogue

import (
	"context"

	"github.com/tbxark/onboard/types"
)

type Phraser interface {
	Phrase(ctx context.Context, req *types.PhraseRequest) (string, error)
}

// CalmingMessage is the reply to a diverted turn. An empty quote leaves
// the middle paragraph out.
func CalmingMessage(quote string) string {
	if quote == "" {
		return "I understand this can be frustrating. I'm here to help. Let's continue when you're ready."
	}
	return "I understand this can be frustrating. Here's something to brighten your day:\n\n" +
		quote + "\n\nI'm here to help. Let's continue when you're ready."
}
