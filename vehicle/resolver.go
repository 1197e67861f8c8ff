package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tbxark/onboard/patch"
	"github.com/tbxark/onboard/types"
	"github.com/tbxark/onboard/validate"
)

const draftVehicle = "/draft/vehicle"

// Step is the resolver's verdict on one utterance inside the sub-flow.
type Step struct {
	Next    types.VehicleStep
	Changes []patch.Operation
	Failure *types.Failure
}

func (s *Step) Accepted() bool { return s.Failure == nil }

type resolverOptions struct {
	now func() time.Time
}

type ResolverOption func(*resolverOptions)

// WithClock fixes the clock used for the model-year range.
func WithClock(now func() time.Time) ResolverOption {
	return func(o *resolverOptions) {
		o.now = now
	}
}

// Resolver walks one vehicle through identification, use, blind-spot and
// mileage questions.
type Resolver struct {
	lookup Lookup
	now    func() time.Time
}

func NewResolver(lookup Lookup, opts ...ResolverOption) *Resolver {
	options := resolverOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Resolver{lookup: lookup, now: options.now}
}

var (
	vinKeywords    = []string{"vin"}
	manualKeywords = []string{"manual", "manually", "year", "make", "enter", "other", "type"}
)

// Resolve handles utterance at the draft's current step. The draft is not
// modified; accepted values come back as patch operations against the
// session. An error is returned only for a draft in a step the resolver
// does not own.
func (r *Resolver) Resolve(ctx context.Context, draft *types.VehicleDraft, utterance string) (*Step, error) {
	if draft == nil {
		return nil, errors.New("no vehicle draft")
	}
	switch draft.Step {
	case types.StepVehicleID:
		return r.identify(ctx, utterance), nil
	case types.StepVehicleVIN:
		return r.resolveVIN(ctx, utterance), nil
	case types.StepVehicleYear:
		year, err := validate.Year(utterance, r.now())
		if err != nil {
			return rejected(err), nil
		}
		return accepted(types.StepVehicleMake, patch.Replace(draftVehicle+"/year", year)), nil
	case types.StepVehicleMake:
		return r.resolveMake(ctx, utterance), nil
	case types.StepVehicleBody:
		body, err := validate.BodyType(utterance)
		if err != nil {
			return rejected(err), nil
		}
		return accepted(types.StepVehicleUse, patch.Replace(draftVehicle+"/body_type", body)), nil
	case types.StepVehicleUse:
		use, err := validate.VehicleUse(utterance)
		if err != nil {
			return rejected(err), nil
		}
		return accepted(types.StepBlindSpot, patch.Replace(draftVehicle+"/use", use)), nil
	case types.StepBlindSpot:
		warning, err := validate.YesNo(utterance)
		if err != nil {
			return rejected(err), nil
		}
		next := types.StepAnnualMileage
		if draft.Vehicle.Use == types.UseCommuting {
			next = types.StepCommuteDays
		}
		return accepted(next, patch.Replace(draftVehicle+"/blind_spot_warning", warning)), nil
	case types.StepCommuteDays:
		days, err := validate.CommuteDays(utterance)
		if err != nil {
			return rejected(err), nil
		}
		return accepted(types.StepCommuteMiles, patch.Replace(draftVehicle+"/days_per_week", days)), nil
	case types.StepCommuteMiles:
		miles, err := validate.Miles(utterance)
		if err != nil {
			return rejected(err), nil
		}
		return accepted(types.StepVehicleDone, patch.Replace(draftVehicle+"/one_way_miles", miles)), nil
	case types.StepAnnualMileage:
		mileage, err := validate.AnnualMileage(utterance)
		if err != nil {
			return rejected(err), nil
		}
		return accepted(types.StepVehicleDone, patch.Replace(draftVehicle+"/annual_mileage", mileage)), nil
	default:
		return nil, fmt.Errorf("vehicle step %q cannot take input", draft.Step)
	}
}

// identify decides between the VIN and manual paths. A VIN-looking token
// is checked right away; a lone word that is not a keyword is treated as a
// VIN attempt.
func (r *Resolver) identify(ctx context.Context, utterance string) *Step {
	if _, ok := validate.VINCandidate(utterance); ok {
		return r.resolveVIN(ctx, utterance)
	}
	lower := strings.ToLower(utterance)
	tokens := strings.FieldsFunc(lower, func(c rune) bool {
		return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
	})
	switch {
	case containsAny(tokens, vinKeywords):
		return accepted(types.StepVehicleVIN, patch.Replace(draftVehicle+"/mode", types.ModeVIN))
	case containsAny(tokens, manualKeywords):
		return accepted(types.StepVehicleYear, patch.Replace(draftVehicle+"/mode", types.ModeManual))
	case len(strings.Fields(utterance)) == 1:
		return r.resolveVIN(ctx, utterance)
	}
	return &Step{Failure: types.Invalid(types.ReasonVehicleIDUnrecognized, "expected a VIN or a request to enter year, make and body type")}
}

func (r *Resolver) resolveVIN(ctx context.Context, utterance string) *Step {
	vin, err := validate.VIN(utterance)
	if err != nil {
		return rejected(err)
	}
	record, err := r.lookup.LookupVIN(ctx, vin)
	switch {
	case errors.Is(err, ErrNotFound):
		return &Step{Failure: types.LookupFailure(types.ReasonVINNotFound, false, err.Error())}
	case errors.Is(err, ErrPending):
		return &Step{Failure: types.LookupFailure(types.ReasonLookupPending, true, err.Error())}
	case err != nil:
		slog.Warn("VIN lookup failed", "vin", vin, "error", err)
		return &Step{Failure: types.LookupFailure(types.ReasonVINLookupFailed, true, err.Error())}
	case record == nil:
		return &Step{Failure: types.LookupFailure(types.ReasonVINNotFound, false, "empty lookup result")}
	}
	slog.Debug("Decoded VIN", "vin", vin, "year", record.Year, "make", record.Make, "model", record.Model)
	return accepted(types.StepVehicleUse,
		patch.Replace(draftVehicle+"/mode", types.ModeVIN),
		patch.Replace(draftVehicle+"/vin", vin),
		patch.Replace(draftVehicle+"/decoded", record),
	)
}

// resolveMake checks the make against the lookup. When the lookup itself
// fails the make is accepted as typed.
func (r *Resolver) resolveMake(ctx context.Context, utterance string) *Step {
	name, err := validate.Make(utterance)
	if err != nil {
		return rejected(err)
	}
	known, err := r.lookup.IsKnownMake(ctx, name)
	if err != nil {
		slog.Warn("Make lookup failed, accepting make as given", "make", name, "error", err)
	} else if !known {
		return &Step{Failure: types.LookupFailure(types.ReasonMakeUnknown, false, fmt.Sprintf("%q is not a known make", name))}
	}
	return accepted(types.StepVehicleBody, patch.Replace(draftVehicle+"/make", name))
}

func accepted(next types.VehicleStep, ops ...patch.Operation) *Step {
	return &Step{Next: next, Changes: ops}
}

func rejected(err error) *Step {
	var failure *types.Failure
	if !errors.As(err, &failure) {
		failure = types.Invalid("", err.Error())
	}
	return &Step{Failure: failure}
}

func containsAny(tokens []string, keywords []string) bool {
	for _, t := range tokens {
		for _, k := range keywords {
			if t == k {
				return true
			}
		}
	}
	return false
}
