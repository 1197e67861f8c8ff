package types

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestVehicleValidate(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		vehicle Vehicle
		want    error
	}{
		"vin business": {
			vehicle: Vehicle{Mode: ModeVIN, VIN: "1HGCM82633A004352", Use: UseBusiness, BlindSpotWarning: boolPtr(false), AnnualMileage: 12000},
		},
		"manual commuting": {
			vehicle: Vehicle{Mode: ModeManual, Year: 2019, Make: "Toyota", BodyType: "Sedan", Use: UseCommuting, BlindSpotWarning: boolPtr(true), DaysPerWeek: 5, OneWayMiles: 12},
		},
		"both modes": {
			vehicle: Vehicle{Mode: ModeVIN, VIN: "1HGCM82633A004352", Year: 2019, Use: UseBusiness, BlindSpotWarning: boolPtr(false), AnnualMileage: 1},
			want:    ErrIdentification,
		},
		"no identification": {
			vehicle: Vehicle{Use: UseBusiness, BlindSpotWarning: boolPtr(false), AnnualMileage: 1},
			want:    ErrIdentification,
		},
		"mode mismatch": {
			vehicle: Vehicle{Mode: ModeManual, VIN: "1HGCM82633A004352", Use: UseBusiness, BlindSpotWarning: boolPtr(false), AnnualMileage: 1},
			want:    ErrIdentification,
		},
		"commute with annual": {
			vehicle: Vehicle{Mode: ModeManual, Year: 2019, Make: "Toyota", BodyType: "Sedan", Use: UseCommuting, BlindSpotWarning: boolPtr(true), DaysPerWeek: 5, OneWayMiles: 12, AnnualMileage: 9000},
			want:    ErrMileageBranch,
		},
		"farming with commute": {
			vehicle: Vehicle{Mode: ModeManual, Year: 2019, Make: "Ford", BodyType: "Truck", Use: UseFarming, BlindSpotWarning: boolPtr(true), DaysPerWeek: 2, AnnualMileage: 9000},
			want:    ErrMileageBranch,
		},
		"days out of range": {
			vehicle: Vehicle{Mode: ModeManual, Year: 2019, Make: "Toyota", BodyType: "Sedan", Use: UseCommuting, BlindSpotWarning: boolPtr(true), DaysPerWeek: 8, OneWayMiles: 12},
			want:    ErrMileageBranch,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tc.vehicle.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}

	unanswered := Vehicle{Mode: ModeVIN, VIN: "1HGCM82633A004352", Use: UseBusiness, AnnualMileage: 1}
	assert.Error(t, unanswered.Validate())
}

func TestSessionClone(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession("s1", now)
	s.Vehicles = append(s.Vehicles, Vehicle{Mode: ModeVIN, VIN: "1HGCM82633A004352", BlindSpotWarning: boolPtr(true), Decoded: &VehicleRecord{Make: "HONDA"}})
	s.State = StateVehicleSubflow
	s.Draft = &VehicleDraft{Step: StepBlindSpot, Vehicle: Vehicle{BlindSpotWarning: boolPtr(false)}}

	c := s.Clone()
	require.Equal(t, s, c)
	*c.Vehicles[0].BlindSpotWarning = false
	c.Vehicles[0].Decoded.Make = "FORD"
	*c.Draft.Vehicle.BlindSpotWarning = true
	c.Draft.Step = StepVehicleUse

	assert.True(t, *s.Vehicles[0].BlindSpotWarning)
	assert.Equal(t, "HONDA", s.Vehicles[0].Decoded.Make)
	assert.False(t, *s.Draft.Vehicle.BlindSpotWarning)
	assert.Equal(t, StepBlindSpot, s.Draft.Step)
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestPosition(t *testing.T) {
	t.Parallel()
	s := NewSession("s1", time.Now())
	assert.Equal(t, "AWAIT_ZIP", s.Position().String())
	s.State = StateVehicleSubflow
	s.Draft = &VehicleDraft{Step: StepVehicleVIN}
	assert.Equal(t, "VEHICLE_SUBFLOW/VEHICLE_VIN", s.Position().String())
	assert.True(t, StepVehicleVIN.IdentificationStep())
	assert.False(t, StepVehicleUse.IdentificationStep())
	assert.False(t, State("NOPE").Valid())
}

func TestProgressOf(t *testing.T) {
	t.Parallel()
	s := NewSession("s1", time.Now())
	p := ProgressOf(s)
	assert.Equal(t, 1, p.Step)
	assert.Equal(t, len(States)-1, p.Total)
	assert.Equal(t, 0, p.Percent)
	assert.Equal(t, "ZIP code", p.Label)

	s.State = StateComplete
	p = ProgressOf(s)
	assert.Equal(t, p.Total, p.Step)
	assert.Equal(t, 100, p.Percent)
}

func TestFieldCatalogCoversEveryPosition(t *testing.T) {
	t.Parallel()
	for _, st := range States {
		if st == StateVehicleSubflow {
			for _, step := range VehicleSteps {
				if step == StepVehicleDone {
					continue
				}
				assert.NotEmpty(t, FieldFor(Position{State: st, Step: step}).DisplayName, step)
			}
			continue
		}
		assert.NotEmpty(t, FieldFor(Position{State: st}).DisplayName, st)
	}
}

func TestFailure(t *testing.T) {
	t.Parallel()
	var err error = LookupFailure(ReasonLookupPending, true, "busy")
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, ClassExternalLookup, f.Class)
	assert.True(t, f.Retryable)
	assert.Equal(t, "LOOKUP_PENDING: busy", err.Error())
	assert.Equal(t, "NAME_EMPTY", Invalid(ReasonNameEmpty, "").Error())
}

func TestFormatPhraseRequest(t *testing.T) {
	t.Parallel()
	s := NewSession("s1", time.Now())
	s.Data.ZipCode = "90210"
	s.State = StateAwaitName
	text, err := FormatPhraseRequest(&PhraseRequest{
		Session:       s,
		Outcome:       &TurnOutcome{Kind: OutcomeAccepted, From: Position{State: StateAwaitZip}, To: Position{State: StateAwaitName}},
		LastUserInput: "90210",
		Progress:      ProgressOf(s),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "# Progress:\nstep 2 of")
	assert.Contains(t, text, "90210")
	assert.Contains(t, text, "accepted, moved from AWAIT_ZIP to AWAIT_NAME")
	assert.Contains(t, text, "/data/full_name")

	greeting, err := FormatPhraseRequest(&PhraseRequest{Session: NewSession("s2", time.Now())})
	require.NoError(t, err)
	assert.Contains(t, greeting, "greet the user")
	assert.Contains(t, greeting, "none")

	_, err = FormatPhraseRequest(&PhraseRequest{})
	assert.Error(t, err)
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()
	s := NewSession("s1", time.Now())
	s.Data = CollectedData{ZipCode: "90210", FullName: "Jane Doe", Email: "jane@example.com", LicenseType: LicenseForeign}
	s.Vehicles = []Vehicle{{Mode: ModeManual, Year: 2019, Make: "Toyota", BodyType: "Sedan", Use: UseCommuting, BlindSpotWarning: boolPtr(true), DaysPerWeek: 5, OneWayMiles: 12}}
	out := FormatSummary(s)
	for _, want := range []string{"Jane Doe", "Foreign", "2019 Toyota Sedan", "Commuting", "days/week"} {
		assert.True(t, strings.Contains(out, want), want)
	}
}

func TestCollectedDataSchema(t *testing.T) {
	t.Parallel()
	schema, err := CollectedDataSchema()
	require.NoError(t, err)
	assert.Contains(t, schema, "zip_code")
	assert.Contains(t, schema, "Insurance onboarding")
}
