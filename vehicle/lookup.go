package vehicle

import (
	"context"
	"errors"

	"github.com/tbxark/onboard/types"
)

var (
	// ErrNotFound means the lookup answered and has no such vehicle.
	ErrNotFound = errors.New("vehicle record not found")
	// ErrPending means the lookup cannot answer yet; the same input may
	// succeed on a later turn.
	ErrPending = errors.New("vehicle lookup pending")
)

// Lookup is the vehicle-record collaborator. Implementations own their
// timeouts.
type Lookup interface {
	LookupVIN(ctx context.Context, vin string) (*types.VehicleRecord, error)
	IsKnownMake(ctx context.Context, name string) (bool, error)
}
