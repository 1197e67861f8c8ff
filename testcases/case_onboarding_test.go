package testcases

import (
	"context"
	"testing"

	"github.com/tbxark/onboard/types"
)

// TestFullOnboarding walks a VIN vehicle through to a foreign license with
// every reply phrased by the model.
func TestFullOnboarding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewTestService(t)

	start, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if start.Message == "" {
		t.Fatal("greeting is empty")
	}
	t.Logf("greeting: %s", start.Message)
	id := start.Session.ID

	submitAll(t, svc, id, "90210", "Jane Doe")

	reply, err := svc.Submit(ctx, id, "not-an-email")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if reply.Outcome.Reason() != types.ReasonEmailMalformed {
		t.Errorf("expected %s, got %s", types.ReasonEmailMalformed, reply.Outcome.Reason())
	}
	if reply.Message == "" {
		t.Error("rejection reply is empty")
	}
	t.Logf("rejection: %s", reply.Message)

	reply = submitAll(t, svc, id,
		"jane@example.com",
		"my VIN is 1HGCM82633A004352",
		"mostly for business",
		"no",
		"around 12,000 miles a year",
		"no that's it",
		"I have a foreign license",
	)
	if reply.Session.State != types.StateComplete {
		t.Fatalf("expected COMPLETE, got %s", reply.Session.State)
	}
	if len(reply.Session.Vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(reply.Session.Vehicles))
	}
	if reply.Session.Data.LicenseStatus != "" {
		t.Errorf("foreign license should not have a status, got %s", reply.Session.Data.LicenseStatus)
	}
	t.Logf("summary:\n%s", types.FormatSummary(reply.Session))
}

// TestManualVehicleTwoVehicles adds a manual commuting vehicle and a second
// VIN vehicle.
func TestManualVehicleTwoVehicles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewTestService(t)

	start, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	reply := submitAll(t, svc, start.Session.ID,
		"10001", "Maria Lopez", "maria@example.org",
		"I'll enter it manually", "2019", "toyota", "sedan",
		"commuting", "yes", "5", "12 miles",
		"yes, one more",
		"1HGCM82633A004352", "farming", "no", "8000",
		"no",
		"personal", "valid",
	)
	if !reply.Session.Complete() {
		t.Fatalf("expected complete session, got %s", reply.Session.Position())
	}
	if len(reply.Session.Vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(reply.Session.Vehicles))
	}
	if got := reply.Session.Vehicles[0].Use; got != types.UseCommuting {
		t.Errorf("expected first vehicle to be Commuting, got %s", got)
	}
}
