package types

import (
	"encoding/json"
	"fmt"

	"github.com/eino-contrib/jsonschema"
)

var fieldCatalog = map[Position]FieldInfo{
	{State: StateAwaitZip}: {
		JSONPointer: "/data/zip_code",
		DisplayName: "ZIP code",
		Description: "5-digit US ZIP code",
		Required:    true,
	},
	{State: StateAwaitName}: {
		JSONPointer: "/data/full_name",
		DisplayName: "Full name",
		Description: "First and last name",
		Required:    true,
	},
	{State: StateAwaitEmail}: {
		JSONPointer: "/data/email",
		DisplayName: "Email",
		Description: "Email address for the policy documents",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepVehicleID}: {
		JSONPointer: "/draft/vehicle/mode",
		DisplayName: "Vehicle identification",
		Description: "The 17-character VIN, or say manual to give year, make and body type",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepVehicleVIN}: {
		JSONPointer: "/draft/vehicle/vin",
		DisplayName: "VIN",
		Description: "17 letters and digits, without I, O or Q",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepVehicleYear}: {
		JSONPointer: "/draft/vehicle/year",
		DisplayName: "Vehicle year",
		Description: "Model year, 1980 or later",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepVehicleMake}: {
		JSONPointer: "/draft/vehicle/make",
		DisplayName: "Vehicle make",
		Description: "Manufacturer, for example Toyota or Ford",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepVehicleBody}: {
		JSONPointer: "/draft/vehicle/body_type",
		DisplayName: "Body type",
		Description: "For example sedan, SUV, truck or coupe",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepVehicleUse}: {
		JSONPointer: "/draft/vehicle/use",
		DisplayName: "Vehicle use",
		Description: "Commuting, Commercial, Farming or Business",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepBlindSpot}: {
		JSONPointer: "/draft/vehicle/blind_spot_warning",
		DisplayName: "Blind spot warning",
		Description: "Whether the vehicle has blind spot warning, yes or no",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepCommuteDays}: {
		JSONPointer: "/draft/vehicle/days_per_week",
		DisplayName: "Commute days per week",
		Description: "A number from 1 to 7",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepCommuteMiles}: {
		JSONPointer: "/draft/vehicle/one_way_miles",
		DisplayName: "One-way commute miles",
		Description: "Miles from home to work",
		Required:    true,
	},
	{State: StateVehicleSubflow, Step: StepAnnualMileage}: {
		JSONPointer: "/draft/vehicle/annual_mileage",
		DisplayName: "Annual mileage",
		Description: "Estimated miles driven per year",
		Required:    true,
	},
	{State: StateAwaitAddVehicle}: {
		JSONPointer: "/vehicles",
		DisplayName: "Another vehicle",
		Description: "Whether to add another vehicle, yes or no",
		Required:    true,
	},
	{State: StateAwaitLicenseType}: {
		JSONPointer: "/data/license_type",
		DisplayName: "License type",
		Description: "Foreign, Personal or Commercial",
		Required:    true,
	},
	{State: StateAwaitLicenseStatus}: {
		JSONPointer: "/data/license_status",
		DisplayName: "License status",
		Description: "Valid or Suspended",
		Required:    true,
	},
	{State: StateComplete}: {
		DisplayName: "Complete",
		Description: "Everything has been collected",
	},
}

// FieldFor returns the field solicited at p. Unknown positions yield a zero
// FieldInfo.
func FieldFor(p Position) FieldInfo {
	return fieldCatalog[p]
}

// Fields lists every catalogued field, for checking pointers against the
// session layout.
func Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(fieldCatalog))
	for _, f := range fieldCatalog {
		if f.JSONPointer != "" {
			out = append(out, f)
		}
	}
	return out
}

// Progress is a coarse "step n of m" indicator over the top-level states.
type Progress struct {
	Step     int    `json:"step"`
	Total    int    `json:"total"`
	Label    string `json:"label"`
	Vehicles int    `json:"vehicles"`
	Percent  int    `json:"percent"`
}

func ProgressOf(s *Session) Progress {
	total := len(States) - 1
	step := total
	for i, st := range States {
		if st == s.State {
			step = i + 1
			break
		}
	}
	if step > total {
		step = total
	}
	percent := (step - 1) * 100 / total
	if s.Complete() {
		percent = 100
	}
	return Progress{
		Step:     step,
		Total:    total,
		Label:    FieldFor(s.Position()).DisplayName,
		Vehicles: len(s.Vehicles),
		Percent:  percent,
	}
}

func (p Progress) String() string {
	return fmt.Sprintf("step %d of %d (%s)", p.Step, p.Total, p.Label)
}

// CollectedDataSchema renders the JSON schema of CollectedData for prompts.
func CollectedDataSchema() (string, error) {
	schema := jsonschema.Reflect(&CollectedData{})
	schema.Title = "Insurance onboarding"
	schema.Description = "Applicant details collected during onboarding. Vehicles are collected separately."
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(schemaBytes), nil
}
