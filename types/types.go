package types

import "fmt"

// State is a top-level point in the onboarding sequence.
type State string

const (
	StateAwaitZip           State = "AWAIT_ZIP"
	StateAwaitName          State = "AWAIT_NAME"
	StateAwaitEmail         State = "AWAIT_EMAIL"
	StateVehicleSubflow     State = "VEHICLE_SUBFLOW"
	StateAwaitAddVehicle    State = "AWAIT_ADD_ANOTHER_VEHICLE"
	StateAwaitLicenseType   State = "AWAIT_LICENSE_TYPE"
	StateAwaitLicenseStatus State = "AWAIT_LICENSE_STATUS"
	StateComplete           State = "COMPLETE"
)

// States lists every top-level state in collection order.
var States = []State{
	StateAwaitZip,
	StateAwaitName,
	StateAwaitEmail,
	StateVehicleSubflow,
	StateAwaitAddVehicle,
	StateAwaitLicenseType,
	StateAwaitLicenseStatus,
	StateComplete,
}

func (s State) Valid() bool {
	for _, v := range States {
		if v == s {
			return true
		}
	}
	return false
}

// VehicleStep is a point inside the vehicle sub-flow.
type VehicleStep string

const (
	StepVehicleID     VehicleStep = "VEHICLE_ID"
	StepVehicleVIN    VehicleStep = "VEHICLE_VIN"
	StepVehicleYear   VehicleStep = "VEHICLE_YEAR"
	StepVehicleMake   VehicleStep = "VEHICLE_MAKE"
	StepVehicleBody   VehicleStep = "VEHICLE_BODY"
	StepVehicleUse    VehicleStep = "VEHICLE_USE"
	StepBlindSpot     VehicleStep = "VEHICLE_BLIND_SPOT"
	StepCommuteDays   VehicleStep = "COMMUTE_DAYS"
	StepCommuteMiles  VehicleStep = "COMMUTE_MILES"
	StepAnnualMileage VehicleStep = "ANNUAL_MILEAGE"
	StepVehicleDone   VehicleStep = "VEHICLE_DONE"
)

var VehicleSteps = []VehicleStep{
	StepVehicleID,
	StepVehicleVIN,
	StepVehicleYear,
	StepVehicleMake,
	StepVehicleBody,
	StepVehicleUse,
	StepBlindSpot,
	StepCommuteDays,
	StepCommuteMiles,
	StepAnnualMileage,
	StepVehicleDone,
}

// IdentificationStep reports whether the step belongs to the VIN-or-manual
// identification phase.
func (s VehicleStep) IdentificationStep() bool {
	switch s {
	case StepVehicleID, StepVehicleVIN, StepVehicleYear, StepVehicleMake, StepVehicleBody:
		return true
	}
	return false
}

// Position pins the field being solicited: the top-level state plus the
// vehicle step when inside the sub-flow.
type Position struct {
	State State       `json:"state"`
	Step  VehicleStep `json:"step,omitempty"`
}

func (p Position) String() string {
	if p.Step == "" {
		return string(p.State)
	}
	return fmt.Sprintf("%s/%s", p.State, p.Step)
}

type IdentificationMode string

const (
	ModeVIN    IdentificationMode = "VIN"
	ModeManual IdentificationMode = "Manual"
)

type VehicleUse string

const (
	UseCommuting  VehicleUse = "Commuting"
	UseCommercial VehicleUse = "Commercial"
	UseFarming    VehicleUse = "Farming"
	UseBusiness   VehicleUse = "Business"
)

var VehicleUses = []VehicleUse{UseCommuting, UseCommercial, UseFarming, UseBusiness}

type LicenseType string

const (
	LicenseForeign    LicenseType = "Foreign"
	LicensePersonal   LicenseType = "Personal"
	LicenseCommercial LicenseType = "Commercial"
)

var LicenseTypes = []LicenseType{LicenseForeign, LicensePersonal, LicenseCommercial}

type LicenseStatus string

const (
	LicenseValid     LicenseStatus = "Valid"
	LicenseSuspended LicenseStatus = "Suspended"
)

var LicenseStatuses = []LicenseStatus{LicenseValid, LicenseSuspended}

type FieldInfo struct {
	JSONPointer string `json:"json_pointer"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}
