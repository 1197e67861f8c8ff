package types

import (
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/onboard/patch"
)

type OutcomeKind string

const (
	OutcomeAccepted OutcomeKind = "accepted"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeDiverted OutcomeKind = "diverted"
)

// TurnOutcome is the result of processing one utterance.
type TurnOutcome struct {
	Kind    OutcomeKind       `json:"kind"`
	From    Position          `json:"from"`
	To      Position          `json:"to"`
	Failure *Failure          `json:"failure,omitempty"`
	Changes []patch.Operation `json:"changes,omitempty"`

	// Field is what the next prompt should ask for.
	Field FieldInfo `json:"field"`

	// NoOp marks a turn submitted to a session that was already complete.
	NoOp bool `json:"no_op,omitempty"`
}

func (o *TurnOutcome) Accepted() bool { return o.Kind == OutcomeAccepted }
func (o *TurnOutcome) Rejected() bool { return o.Kind == OutcomeRejected }
func (o *TurnOutcome) Diverted() bool { return o.Kind == OutcomeDiverted }

// Reason returns the failure reason, or "" when the turn was not rejected.
func (o *TurnOutcome) Reason() Reason {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Reason
}

// TurnRecord is handed to persistence after every processed turn.
type TurnRecord struct {
	SessionID string       `json:"session_id"`
	Before    Position     `json:"before"`
	After     Position     `json:"after"`
	Utterance string       `json:"utterance"`
	Outcome   *TurnOutcome `json:"outcome"`
	Reply     string       `json:"reply,omitempty"`
	At        time.Time    `json:"at"`
}

// PhraseRequest is everything the phrasing collaborator may look at.
type PhraseRequest struct {
	Session       *Session          `json:"session"`
	Outcome       *TurnOutcome      `json:"outcome,omitempty"`
	LastUserInput string            `json:"last_user_input,omitempty"`
	Quote         string            `json:"quote,omitempty"`
	Progress      Progress          `json:"progress"`
	History       []*schema.Message `json:"-"`
	StateSchema   string            `json:"-"`
}

// Greeting reports whether the request is for the opening message.
func (r *PhraseRequest) Greeting() bool {
	return r.Outcome == nil
}
