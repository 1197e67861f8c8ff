package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tbxark/onboard/frustration"
	"github.com/tbxark/onboard/patch"
	"github.com/tbxark/onboard/types"
	"github.com/tbxark/onboard/validate"
	"github.com/tbxark/onboard/vehicle"
)

const (
	pointerState    = "/state"
	pointerDraft    = "/draft"
	pointerStep     = "/draft/step"
	pointerVehicles = "/vehicles/-"
)

var identificationPointers = []string{
	"/draft/vehicle/mode",
	"/draft/vehicle/vin",
	"/draft/vehicle/year",
	"/draft/vehicle/make",
	"/draft/vehicle/body_type",
	"/draft/vehicle/decoded",
}

// allowedPointers lists what a turn at each position may write. Finishing a
// vehicle also appends it and leaves the sub-flow.
func allowedPointers(pos types.Position) []string {
	field := types.FieldFor(pos).JSONPointer
	switch pos.State {
	case types.StateAwaitZip, types.StateAwaitName, types.StateAwaitLicenseType, types.StateAwaitLicenseStatus:
		return []string{field, pointerState}
	case types.StateAwaitEmail, types.StateAwaitAddVehicle:
		return []string{field, pointerState, pointerDraft}
	case types.StateVehicleSubflow:
		if pos.Step.IdentificationStep() {
			return append([]string{pointerStep}, identificationPointers...)
		}
		return []string{field, pointerStep, pointerDraft, pointerVehicles, pointerState}
	}
	return nil
}

type flowOptions struct {
	now func() time.Time
}

type FlowOption func(*flowOptions)

func WithFlowClock(now func() time.Time) FlowOption {
	return func(o *flowOptions) {
		o.now = now
	}
}

// Flow is the onboarding state machine. It holds no per-session state and
// may be shared by any number of sessions.
type Flow struct {
	resolver *vehicle.Resolver
	detector frustration.Detector
	now      func() time.Time
	allowed  map[types.Position]map[string]bool
}

func NewFlow(resolver *vehicle.Resolver, detector frustration.Detector, opts ...FlowOption) (*Flow, error) {
	if resolver == nil {
		return nil, errors.New("vehicle resolver is required")
	}
	options := flowOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	f := &Flow{
		resolver: resolver,
		detector: detector,
		now:      options.now,
		allowed:  make(map[types.Position]map[string]bool),
	}
	for _, pos := range positions() {
		paths := allowedPointers(pos)
		for _, p := range paths {
			if !patch.Covers[types.Session](p) {
				return nil, fmt.Errorf("pointer %s of %s is not a session path", p, pos)
			}
		}
		f.allowed[pos] = patch.AllowedSet(paths...)
	}
	return f, nil
}

func positions() []types.Position {
	out := make([]types.Position, 0, len(types.States)+len(types.VehicleSteps))
	for _, s := range types.States {
		if s == types.StateVehicleSubflow {
			for _, step := range types.VehicleSteps {
				if step != types.StepVehicleDone {
					out = append(out, types.Position{State: s, Step: step})
				}
			}
			continue
		}
		if s != types.StateComplete {
			out = append(out, types.Position{State: s})
		}
	}
	return out
}

// Start creates a session waiting for its ZIP code.
func (f *Flow) Start(id string) *types.Session {
	return types.NewSession(id, f.now())
}

// Process runs one utterance against s and updates it in place when the
// answer is accepted. The returned error is reserved for a session the
// machine cannot work with; bad answers come back as rejected outcomes.
func (f *Flow) Process(ctx context.Context, s *types.Session, utterance string) (*types.TurnOutcome, error) {
	if s == nil {
		return nil, errors.New("session is nil")
	}
	if !s.State.Valid() {
		return nil, fmt.Errorf("session %s has unknown state %q", s.ID, s.State)
	}
	from := s.Position()
	if s.Complete() {
		return &types.TurnOutcome{
			Kind:  types.OutcomeAccepted,
			From:  from,
			To:    from,
			Field: types.FieldFor(from),
			NoOp:  true,
		}, nil
	}

	if f.frustrated(ctx, utterance) {
		slog.Debug("Diverted frustrated turn", "session", s.ID, "position", from.String())
		return &types.TurnOutcome{
			Kind:  types.OutcomeDiverted,
			From:  from,
			To:    from,
			Field: types.FieldFor(from),
		}, nil
	}

	ops, failure, err := f.transition(ctx, s, utterance)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		slog.Debug("Rejected turn", "session", s.ID, "position", from.String(), "reason", failure.Reason)
		return &types.TurnOutcome{
			Kind:    types.OutcomeRejected,
			From:    from,
			To:      from,
			Failure: failure,
			Field:   types.FieldFor(from),
		}, nil
	}

	if err := patch.ValidatePatchOperations(ops, f.allowed[from]); err != nil {
		return nil, fmt.Errorf("invalid changes at %s: %w", from, err)
	}
	if s.Vehicles == nil {
		s.Vehicles = []types.Vehicle{}
	}
	next, err := patch.ApplyRFC6902(*s, ops)
	if err != nil {
		return nil, fmt.Errorf("failed to apply changes at %s: %w", from, err)
	}
	next.UpdatedAt = f.now()
	*s = next
	to := s.Position()
	slog.Debug("Applied patch", "session", s.ID, "from", from.String(), "to", to.String(), "ops", len(ops))

	return &types.TurnOutcome{
		Kind:    types.OutcomeAccepted,
		From:    from,
		To:      to,
		Changes: ops,
		Field:   types.FieldFor(to),
	}, nil
}

func (f *Flow) frustrated(ctx context.Context, utterance string) bool {
	if f.detector == nil {
		return false
	}
	frustrated, err := f.detector.Detect(ctx, utterance)
	if err != nil {
		slog.Warn("Frustration check failed", "error", err)
		return false
	}
	return frustrated
}

// transition is the total transition function over the closed state set.
func (f *Flow) transition(ctx context.Context, s *types.Session, utterance string) ([]patch.Operation, *types.Failure, error) {
	switch s.State {
	case types.StateAwaitZip:
		zip, err := validate.Zip(utterance)
		if err != nil {
			return failed(err)
		}
		return advance(types.StateAwaitName, patch.Replace("/data/zip_code", zip))

	case types.StateAwaitName:
		name, err := validate.FullName(utterance)
		if err != nil {
			return failed(err)
		}
		return advance(types.StateAwaitEmail, patch.Replace("/data/full_name", name))

	case types.StateAwaitEmail:
		email, err := validate.Email(utterance)
		if err != nil {
			return failed(err)
		}
		return advance(types.StateVehicleSubflow,
			patch.Replace("/data/email", email),
			patch.Add(pointerDraft, types.VehicleDraft{Step: types.StepVehicleID}),
		)

	case types.StateVehicleSubflow:
		return f.vehicleTurn(ctx, s, utterance)

	case types.StateAwaitAddVehicle:
		another, err := validate.AddAnother(utterance)
		if err != nil {
			return failed(err)
		}
		if another {
			return advance(types.StateVehicleSubflow, patch.Add(pointerDraft, types.VehicleDraft{Step: types.StepVehicleID}))
		}
		return advance(types.StateAwaitLicenseType)

	case types.StateAwaitLicenseType:
		lt, err := validate.LicenseType(utterance)
		if err != nil {
			return failed(err)
		}
		next := types.StateAwaitLicenseStatus
		if lt == types.LicenseForeign {
			next = types.StateComplete
		}
		return advance(next, patch.Replace("/data/license_type", lt))

	case types.StateAwaitLicenseStatus:
		status, err := validate.LicenseStatus(utterance)
		if err != nil {
			return failed(err)
		}
		return advance(types.StateComplete, patch.Replace("/data/license_status", status))

	case types.StateComplete:
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("no transition for state %q", s.State)
}

func (f *Flow) vehicleTurn(ctx context.Context, s *types.Session, utterance string) ([]patch.Operation, *types.Failure, error) {
	if s.Draft == nil {
		return nil, nil, fmt.Errorf("session %s is in the vehicle sub-flow without a draft", s.ID)
	}
	step, err := f.resolver.Resolve(ctx, s.Draft, utterance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve vehicle step: %w", err)
	}
	if !step.Accepted() {
		return nil, step.Failure, nil
	}
	if step.Next != types.StepVehicleDone {
		return append(step.Changes, patch.Replace(pointerStep, step.Next)), nil, nil
	}

	finished, err := patch.ApplyRFC6902(*s.Draft, rebase(step.Changes, pointerDraft))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to finish vehicle: %w", err)
	}
	if err := finished.Vehicle.Validate(); err != nil {
		return nil, nil, fmt.Errorf("finished vehicle is inconsistent: %w", err)
	}
	ops := append(step.Changes,
		patch.Add(pointerVehicles, finished.Vehicle),
		patch.Remove(pointerDraft),
	)
	return advance(types.StateAwaitAddVehicle, ops...)
}

func failed(err error) ([]patch.Operation, *types.Failure, error) {
	var failure *types.Failure
	if errors.As(err, &failure) {
		return nil, failure, nil
	}
	return nil, nil, err
}

func advance(next types.State, ops ...patch.Operation) ([]patch.Operation, *types.Failure, error) {
	return append(ops, patch.Replace(pointerState, next)), nil, nil
}

// rebase strips prefix from every path so session-level operations can be
// applied to the sub-document at prefix.
func rebase(ops []patch.Operation, prefix string) []patch.Operation {
	out := make([]patch.Operation, 0, len(ops))
	for _, op := range ops {
		op.Path = strings.TrimPrefix(op.Path, prefix)
		out = append(out, op)
	}
	return out
}
