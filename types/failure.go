package types

import "fmt"

// Reason is the machine-readable code carried by a rejected turn.
type Reason string

const (
	ReasonInvalidZipFormat      Reason = "INVALID_ZIP_FORMAT"
	ReasonNameEmpty             Reason = "NAME_EMPTY"
	ReasonEmailMalformed        Reason = "EMAIL_MALFORMED"
	ReasonVINInvalidFormat      Reason = "VIN_INVALID_FORMAT"
	ReasonVINNotFound           Reason = "VIN_NOT_FOUND"
	ReasonVINLookupFailed       Reason = "VIN_LOOKUP_FAILED"
	ReasonLookupPending         Reason = "LOOKUP_PENDING"
	ReasonVehicleIDUnrecognized Reason = "VEHICLE_ID_UNRECOGNIZED"
	ReasonYearInvalid           Reason = "YEAR_INVALID"
	ReasonMakeEmpty             Reason = "MAKE_EMPTY"
	ReasonMakeUnknown           Reason = "MAKE_UNKNOWN"
	ReasonBodyTypeEmpty         Reason = "BODY_TYPE_EMPTY"
	ReasonVehicleUseInvalid     Reason = "VEHICLE_USE_INVALID"
	ReasonYesNoUnrecognized     Reason = "YES_NO_UNRECOGNIZED"
	ReasonCommuteDaysRange      Reason = "COMMUTE_DAYS_OUT_OF_RANGE"
	ReasonMilesInvalid          Reason = "MILES_INVALID"
	ReasonAnnualMileageInvalid  Reason = "ANNUAL_MILEAGE_INVALID"
	ReasonLicenseTypeInvalid    Reason = "LICENSE_TYPE_INVALID"
	ReasonLicenseStatusInvalid  Reason = "LICENSE_STATUS_INVALID"
)

// FailureClass separates bad user input from collaborator trouble so the
// reply can say "check the format" versus "that VIN wasn't found".
type FailureClass string

const (
	ClassValidation     FailureClass = "validation"
	ClassExternalLookup FailureClass = "external_lookup"
)

// Failure is the error returned by validators and lookups for one turn.
type Failure struct {
	Reason    Reason       `json:"reason"`
	Class     FailureClass `json:"class"`
	Retryable bool         `json:"retryable,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Detail)
}

func Invalid(reason Reason, detail string) *Failure {
	return &Failure{Reason: reason, Class: ClassValidation, Detail: detail}
}

func LookupFailure(reason Reason, retryable bool, detail string) *Failure {
	return &Failure{Reason: reason, Class: ClassExternalLookup, Retryable: retryable, Detail: detail}
}
