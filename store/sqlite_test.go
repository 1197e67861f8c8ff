package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "onboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sess := types.NewSession("abc", now)
	require.NoError(t, s.Create(ctx, sess))
	assert.ErrorIs(t, s.Create(ctx, sess), agent.ErrSessionExists)

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitZip, got.State)
	assert.NotNil(t, got.Vehicles)
	assert.True(t, got.CreatedAt.Equal(now))

	warning := true
	sess.State = types.StateVehicleSubflow
	sess.Data = types.CollectedData{ZipCode: "90210", FullName: "Jane Doe", Email: "jane@example.com"}
	sess.Vehicles = append(sess.Vehicles, types.Vehicle{
		Mode:             types.ModeVIN,
		VIN:              "1HGCM82633A004352",
		Use:              types.UseBusiness,
		BlindSpotWarning: &warning,
		AnnualMileage:    12000,
		Decoded:          &types.VehicleRecord{Year: 2003, Make: "HONDA", Model: "Accord"},
	})
	sess.Draft = &types.VehicleDraft{Step: types.StepVehicleYear, Vehicle: types.Vehicle{Mode: types.ModeManual}}
	sess.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.Put(ctx, sess))

	got, err = s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, sess.Data, got.Data)
	assert.Equal(t, sess.Position(), got.Position())
	require.Len(t, got.Vehicles, 1)
	assert.Equal(t, sess.Vehicles[0], got.Vehicles[0])
}

func TestGetAndPutUnknownSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, agent.ErrSessionNotFound)
	err = s.Put(ctx, types.NewSession("nope", time.Now()))
	assert.ErrorIs(t, err, agent.ErrSessionNotFound)
}

func TestRecordTurns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	zip := types.Position{State: types.StateAwaitZip}
	name := types.Position{State: types.StateAwaitName}
	require.NoError(t, s.Record(ctx, types.TurnRecord{
		SessionID: "abc",
		Before:    zip,
		After:     zip,
		Utterance: "9021",
		Outcome:   &types.TurnOutcome{Kind: types.OutcomeRejected, From: zip, To: zip, Failure: types.Invalid(types.ReasonInvalidZipFormat, "")},
		Reply:     "Please provide a valid 5-digit ZIP code.",
		At:        at,
	}))
	require.NoError(t, s.Record(ctx, types.TurnRecord{
		SessionID: "abc",
		Before:    zip,
		After:     name,
		Utterance: "90210",
		Outcome:   &types.TurnOutcome{Kind: types.OutcomeAccepted, From: zip, To: name},
		At:        at.Add(time.Second),
	}))
	require.NoError(t, s.Record(ctx, types.TurnRecord{SessionID: "other", Utterance: "x", Outcome: &types.TurnOutcome{Kind: types.OutcomeDiverted}, At: at}))

	turns, err := s.Turns(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, types.ReasonInvalidZipFormat, turns[0].Outcome.Reason())
	assert.Equal(t, "Please provide a valid 5-digit ZIP code.", turns[0].Reply)
	assert.Equal(t, name, turns[1].After)
	assert.Empty(t, turns[1].Reply)
	assert.True(t, turns[1].At.Equal(at.Add(time.Second)))
}

func TestDecodeCheckpointVersion(t *testing.T) {
	t.Parallel()
	_, err := decodeCheckpoint([]byte(`{"version":"0.9","session":{"id":"a","state":"AWAIT_ZIP"}}`))
	assert.ErrorContains(t, err, "incompatible checkpoint version")
	_, err = decodeCheckpoint([]byte(`{"version":"1.0"}`))
	assert.Error(t, err)
	sess, err := decodeCheckpoint([]byte(`{"version":"1.0","session":{"id":"a","state":"AWAIT_ZIP"}}`))
	require.NoError(t, err)
	assert.Equal(t, "a", sess.ID)
	assert.NotNil(t, sess.Vehicles)
}
