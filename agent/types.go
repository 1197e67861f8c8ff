package agent

import (
	"time"

	"github.com/tbxark/onboard/types"
)

// Reply is what the turn API returns for a session.
type Reply struct {
	Session  *types.Session     `json:"session"`
	Outcome  *types.TurnOutcome `json:"outcome,omitempty"`
	Message  string             `json:"message,omitempty"`
	Progress types.Progress     `json:"progress"`
}

// Observer receives service events for metrics.
type Observer interface {
	SessionStarted()
	TurnProcessed(outcome *types.TurnOutcome, elapsed time.Duration)
	SessionCompleted()
	CollaboratorFailed(collaborator string)
}

type nopObserver struct{}

func (nopObserver) SessionStarted()                                 {}
func (nopObserver) TurnProcessed(*types.TurnOutcome, time.Duration) {}
func (nopObserver) SessionCompleted()                               {}
func (nopObserver) CollaboratorFailed(string)                       {}
