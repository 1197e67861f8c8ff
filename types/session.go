package types

import (
	"errors"
	"fmt"
	"time"
)

type CollectedData struct {
	ZipCode       string        `json:"zip_code,omitempty" jsonschema:"description=5-digit US ZIP code"`
	FullName      string        `json:"full_name,omitempty" jsonschema:"description=Full name of the applicant"`
	Email         string        `json:"email,omitempty" jsonschema:"description=Contact email address"`
	LicenseType   LicenseType   `json:"license_type,omitempty" jsonschema:"enum=Foreign,enum=Personal,enum=Commercial,description=US driver license type"`
	LicenseStatus LicenseStatus `json:"license_status,omitempty" jsonschema:"enum=Valid,enum=Suspended,description=License status; not asked for foreign licenses"`
}

// VehicleRecord is what the vehicle-record lookup knows about a VIN.
type VehicleRecord struct {
	Year     int    `json:"year,omitempty"`
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	BodyType string `json:"body_type,omitempty"`
}

type Vehicle struct {
	Mode             IdentificationMode `json:"mode,omitempty" jsonschema:"enum=VIN,enum=Manual"`
	VIN              string             `json:"vin,omitempty"`
	Year             int                `json:"year,omitempty"`
	Make             string             `json:"make,omitempty"`
	BodyType         string             `json:"body_type,omitempty"`
	Use              VehicleUse         `json:"use,omitempty" jsonschema:"enum=Commuting,enum=Commercial,enum=Farming,enum=Business"`
	BlindSpotWarning *bool              `json:"blind_spot_warning,omitempty"`
	DaysPerWeek      int                `json:"days_per_week,omitempty"`
	OneWayMiles      float64            `json:"one_way_miles,omitempty"`
	AnnualMileage    float64            `json:"annual_mileage,omitempty"`

	// Decoded is lookup enrichment for VIN vehicles, not an identification field.
	Decoded *VehicleRecord `json:"decoded,omitempty"`
}

var (
	ErrIdentification = errors.New("vehicle must be identified by exactly one of VIN or year/make/body type")
	ErrMileageBranch  = errors.New("vehicle mileage fields do not match its use")
)

// Validate checks the finalized-vehicle invariants: one identification mode
// and the mileage fields of exactly one use branch.
func (v *Vehicle) Validate() error {
	hasVIN := v.VIN != ""
	hasManual := v.Year != 0 && v.Make != "" && v.BodyType != ""
	anyManual := v.Year != 0 || v.Make != "" || v.BodyType != ""
	switch {
	case hasVIN && anyManual, !hasVIN && !hasManual:
		return ErrIdentification
	case hasVIN && v.Mode != ModeVIN, hasManual && v.Mode != ModeManual:
		return ErrIdentification
	}

	if v.BlindSpotWarning == nil {
		return fmt.Errorf("vehicle blind spot warning not answered")
	}

	commute := v.DaysPerWeek != 0 || v.OneWayMiles != 0
	switch v.Use {
	case UseCommuting:
		if v.DaysPerWeek < 1 || v.DaysPerWeek > 7 || v.OneWayMiles <= 0 || v.AnnualMileage != 0 {
			return ErrMileageBranch
		}
	case UseCommercial, UseFarming, UseBusiness:
		if commute || v.AnnualMileage <= 0 {
			return ErrMileageBranch
		}
	default:
		return fmt.Errorf("vehicle use %q is not recognized", v.Use)
	}
	return nil
}

// VehicleDraft is the vehicle currently moving through the sub-flow.
type VehicleDraft struct {
	Step    VehicleStep `json:"step"`
	Vehicle Vehicle     `json:"vehicle"`
}

type Session struct {
	ID        string        `json:"id"`
	State     State         `json:"state"`
	Data      CollectedData `json:"data"`
	Vehicles  []Vehicle     `json:"vehicles"`
	Draft     *VehicleDraft `json:"draft,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateAwaitZip,
		Vehicles:  []Vehicle{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Position returns where the session currently is.
func (s *Session) Position() Position {
	if s.State == StateVehicleSubflow && s.Draft != nil {
		return Position{State: s.State, Step: s.Draft.Step}
	}
	return Position{State: s.State}
}

func (s *Session) Complete() bool {
	return s.State == StateComplete
}

// CheckpointVersion is bumped whenever the session layout changes.
const CheckpointVersion = "1.0"

type Checkpoint struct {
	Version   string    `json:"version"`
	Session   *Session  `json:"session"`
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Vehicles = make([]Vehicle, len(s.Vehicles))
	for i := range s.Vehicles {
		out.Vehicles[i] = s.Vehicles[i].clone()
	}
	if s.Draft != nil {
		draft := *s.Draft
		draft.Vehicle = s.Draft.Vehicle.clone()
		out.Draft = &draft
	}
	return &out
}

func (v Vehicle) clone() Vehicle {
	if v.BlindSpotWarning != nil {
		b := *v.BlindSpotWarning
		v.BlindSpotWarning = &b
	}
	if v.Decoded != nil {
		rec := *v.Decoded
		v.Decoded = &rec
	}
	return v
}
