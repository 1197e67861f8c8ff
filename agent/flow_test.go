package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/onboard/frustration"
	"github.com/tbxark/onboard/patch"
	"github.com/tbxark/onboard/types"
	"github.com/tbxark/onboard/vehicle"
)

const testVIN = "1HGCM82633A004352"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubLookup struct {
	record  *types.VehicleRecord
	vinErr  error
	makeErr error
	unknown bool
	calls   atomic.Int32
}

func (l *stubLookup) LookupVIN(ctx context.Context, vin string) (*types.VehicleRecord, error) {
	l.calls.Add(1)
	if l.vinErr != nil {
		return nil, l.vinErr
	}
	return l.record, nil
}

func (l *stubLookup) IsKnownMake(ctx context.Context, name string) (bool, error) {
	l.calls.Add(1)
	if l.makeErr != nil {
		return false, l.makeErr
	}
	return !l.unknown, nil
}

func newStubLookup() *stubLookup {
	return &stubLookup{record: &types.VehicleRecord{Year: 2003, Make: "HONDA", Model: "Accord", BodyType: "Coupe"}}
}

type errDetector struct{}

func (errDetector) Detect(ctx context.Context, utterance string) (bool, error) {
	return true, errors.New("sentiment service down")
}

func newTestFlow(t *testing.T, lookup vehicle.Lookup, detector frustration.Detector) *Flow {
	t.Helper()
	clock := func() time.Time { return testNow }
	f, err := NewFlow(vehicle.NewResolver(lookup, vehicle.WithClock(clock)), detector, WithFlowClock(clock))
	require.NoError(t, err)
	return f
}

// drive feeds inputs in order and requires each to be accepted.
func drive(t *testing.T, f *Flow, s *types.Session, inputs ...string) {
	t.Helper()
	for _, in := range inputs {
		out, err := f.Process(context.Background(), s, in)
		require.NoError(t, err, in)
		require.True(t, out.Accepted(), "%q: %s %s", in, out.Kind, out.Reason())
	}
}

func TestZipAdvances(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), frustration.NewKeywordDetector())
	s := f.Start("s1")
	require.Equal(t, types.StateAwaitZip, s.State)

	out, err := f.Process(context.Background(), s, "my zip is 90210")
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, types.Position{State: types.StateAwaitZip}, out.From)
	assert.Equal(t, types.Position{State: types.StateAwaitName}, out.To)
	assert.Equal(t, "/data/full_name", out.Field.JSONPointer)
	assert.Contains(t, out.Changes, patch.Replace("/data/zip_code", "90210"))
	assert.Equal(t, "90210", s.Data.ZipCode)
	assert.Equal(t, types.StateAwaitName, s.State)
}

func TestZipRejectedLeavesSession(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	s := f.Start("s1")
	before := s.Clone()

	out, err := f.Process(context.Background(), s, "9021")
	require.NoError(t, err)
	assert.True(t, out.Rejected())
	assert.Equal(t, types.ReasonInvalidZipFormat, out.Reason())
	assert.Equal(t, types.ClassValidation, out.Failure.Class)
	assert.Equal(t, out.From, out.To)
	assert.Empty(t, out.Changes)
	assert.Equal(t, before, s)
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), frustration.NewKeywordDetector())
	s := f.Start("s1")
	ctx := context.Background()

	out, err := f.Process(ctx, s, "90210")
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitName, out.To.State)

	out, err = f.Process(ctx, s, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitEmail, out.To.State)
	assert.Equal(t, "Jane Doe", s.Data.FullName)

	out, err = f.Process(ctx, s, "not-an-email")
	require.NoError(t, err)
	assert.True(t, out.Rejected())
	assert.Equal(t, types.ReasonEmailMalformed, out.Reason())
	assert.Equal(t, types.StateAwaitEmail, s.State)
	assert.Empty(t, s.Data.Email)

	out, err = f.Process(ctx, s, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, types.Position{State: types.StateVehicleSubflow, Step: types.StepVehicleID}, out.To)
	assert.Equal(t, "jane@example.com", s.Data.Email)
	require.NotNil(t, s.Draft)
	assert.Equal(t, types.StepVehicleID, s.Draft.Step)
}

func TestVINFormatRejectsStayAtVehicleID(t *testing.T) {
	t.Parallel()
	lookup := newStubLookup()
	f := newTestFlow(t, lookup, nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com")

	for _, in := range []string{"1HGCM82633A00435", "1HGCM82633A0043IO", "ABC"} {
		out, err := f.Process(context.Background(), s, in)
		require.NoError(t, err)
		assert.True(t, out.Rejected(), in)
		assert.Equal(t, types.ReasonVINInvalidFormat, out.Reason(), in)
		assert.Equal(t, types.Position{State: types.StateVehicleSubflow, Step: types.StepVehicleID}, s.Position())
	}
	assert.Zero(t, lookup.calls.Load(), "malformed VINs never reach the lookup")
}

func TestVINLookupOutcomes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		err       error
		reason    types.Reason
		retryable bool
	}{
		{"not found", vehicle.ErrNotFound, types.ReasonVINNotFound, false},
		{"pending", vehicle.ErrPending, types.ReasonLookupPending, true},
		{"failed", errors.New("connection reset"), types.ReasonVINLookupFailed, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFlow(t, &stubLookup{vinErr: tc.err}, nil)
			s := f.Start("s1")
			drive(t, f, s, "90210", "Jane Doe", "jane@example.com")
			out, err := f.Process(context.Background(), s, testVIN)
			require.NoError(t, err)
			assert.Equal(t, tc.reason, out.Reason())
			assert.Equal(t, types.ClassExternalLookup, out.Failure.Class)
			assert.Equal(t, tc.retryable, out.Failure.Retryable)
			assert.Equal(t, types.StepVehicleID, s.Draft.Step)
		})
	}
}

func TestVINVehicleBusinessUse(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com")

	out, err := f.Process(context.Background(), s, "it's "+testVIN)
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, types.StepVehicleUse, out.To.Step)
	assert.Equal(t, types.ModeVIN, s.Draft.Vehicle.Mode)
	require.NotNil(t, s.Draft.Vehicle.Decoded)
	assert.Equal(t, "Accord", s.Draft.Vehicle.Decoded.Model)

	drive(t, f, s, "business", "no")
	assert.Equal(t, types.StepAnnualMileage, s.Draft.Step)

	out, err = f.Process(context.Background(), s, "about 12k a year")
	require.NoError(t, err)
	require.True(t, out.Accepted())
	assert.Equal(t, types.Position{State: types.StateAwaitAddVehicle}, out.To)
	assert.Nil(t, s.Draft)
	require.Len(t, s.Vehicles, 1)
	v := s.Vehicles[0]
	assert.NoError(t, v.Validate())
	assert.Equal(t, testVIN, v.VIN)
	assert.Equal(t, types.UseBusiness, v.Use)
	assert.Equal(t, 12000.0, v.AnnualMileage)
	assert.Zero(t, v.DaysPerWeek)
	assert.Zero(t, v.OneWayMiles)
	require.NotNil(t, v.BlindSpotWarning)
	assert.False(t, *v.BlindSpotWarning)
}

func TestManualCommutingVehicle(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com", "I'll enter it manually")
	assert.Equal(t, types.StepVehicleYear, s.Draft.Step)

	out, err := f.Process(context.Background(), s, testVIN)
	require.NoError(t, err)
	assert.Equal(t, types.ReasonYearInvalid, out.Reason(), "mode is locked once chosen")

	drive(t, f, s, "2019", "toyota", "sedan", "commute", "yes", "5", "12 miles")
	require.Len(t, s.Vehicles, 1)
	v := s.Vehicles[0]
	assert.NoError(t, v.Validate())
	assert.Equal(t, types.ModeManual, v.Mode)
	assert.Equal(t, 2019, v.Year)
	assert.Equal(t, "Toyota", v.Make)
	assert.Empty(t, v.VIN)
	assert.Equal(t, types.UseCommuting, v.Use)
	assert.Equal(t, 5, v.DaysPerWeek)
	assert.Equal(t, 12.0, v.OneWayMiles)
	assert.Zero(t, v.AnnualMileage)
	assert.Equal(t, types.StateAwaitAddVehicle, s.State)
}

func TestUnknownMakeRejected(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, &stubLookup{unknown: true}, nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com", "manual", "2019")
	out, err := f.Process(context.Background(), s, "Flintmobile")
	require.NoError(t, err)
	assert.Equal(t, types.ReasonMakeUnknown, out.Reason())
	assert.Equal(t, types.StepVehicleMake, s.Draft.Step)
}

func TestAddAnotherVehicle(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com", testVIN, "farming", "yes", "8000")

	drive(t, f, s, "yes, one more")
	assert.Equal(t, types.Position{State: types.StateVehicleSubflow, Step: types.StepVehicleID}, s.Position())
	assert.Equal(t, types.Vehicle{}, s.Draft.Vehicle)

	drive(t, f, s, "manual", "2021", "ford", "truck", "commercial", "no", "20,000")
	require.Len(t, s.Vehicles, 2)
	assert.Equal(t, types.UseFarming, s.Vehicles[0].Use)
	assert.Equal(t, types.UseCommercial, s.Vehicles[1].Use)

	drive(t, f, s, "no, that's all")
	assert.Equal(t, types.StateAwaitLicenseType, s.State)
}

func TestForeignLicenseSkipsStatus(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com", testVIN, "business", "no", "5000", "no")

	out, err := f.Process(context.Background(), s, "it's a foreign license")
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, types.StateComplete, out.To.State)
	assert.Equal(t, types.LicenseForeign, s.Data.LicenseType)
	assert.Empty(t, s.Data.LicenseStatus)
}

func TestPersonalLicenseAsksStatus(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com", testVIN, "business", "no", "5000", "no", "personal")
	assert.Equal(t, types.StateAwaitLicenseStatus, s.State)

	drive(t, f, s, "valid")
	assert.True(t, s.Complete())
	assert.Equal(t, types.LicenseValid, s.Data.LicenseStatus)
}

func TestCompleteIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), frustration.NewKeywordDetector())
	s := f.Start("s1")
	drive(t, f, s, "90210", "Jane Doe", "jane@example.com", testVIN, "business", "no", "5000", "no", "foreign")
	require.True(t, s.Complete())
	snapshot := s.Clone()

	for _, in := range []string{"hello?", "90210", "this is ridiculous", ""} {
		out, err := f.Process(context.Background(), s, in)
		require.NoError(t, err)
		assert.True(t, out.Accepted(), in)
		assert.True(t, out.NoOp, in)
		assert.Empty(t, out.Changes)
		assert.Equal(t, snapshot, s)
	}
}

func TestFrustrationTakesPrecedence(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), frustration.NewKeywordDetector())
	s := f.Start("s1")

	out, err := f.Process(context.Background(), s, "90210, this is ridiculous")
	require.NoError(t, err)
	assert.True(t, out.Diverted())
	assert.Nil(t, out.Failure)
	assert.Equal(t, types.StateAwaitZip, s.State)
	assert.Empty(t, s.Data.ZipCode)
}

func TestDetectorErrorIsNotFrustration(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), errDetector{})
	s := f.Start("s1")
	drive(t, f, s, "90210")
	assert.Equal(t, "90210", s.Data.ZipCode)
}

func TestProcessRejectsBrokenSession(t *testing.T) {
	t.Parallel()
	f := newTestFlow(t, newStubLookup(), nil)
	_, err := f.Process(context.Background(), nil, "x")
	assert.Error(t, err)

	s := f.Start("s1")
	s.State = "SOMEWHERE"
	_, err = f.Process(context.Background(), s, "x")
	assert.Error(t, err)

	s = f.Start("s2")
	s.State = types.StateVehicleSubflow
	_, err = f.Process(context.Background(), s, testVIN)
	assert.Error(t, err)
}

func TestAllowedPointersAreSessionPaths(t *testing.T) {
	t.Parallel()
	for _, pos := range positions() {
		paths := allowedPointers(pos)
		require.NotEmpty(t, paths, pos.String())
		for _, p := range paths {
			assert.True(t, patch.Covers[types.Session](p), "%s: %s", pos, p)
		}
	}
}
