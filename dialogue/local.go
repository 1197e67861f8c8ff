package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/onboard/types"
)

const (
	DefaultWelcome  = "👋 Hi there! Welcome to our insurance onboarding. I'll help you get set up quickly. Let's start with your ZIP code - what is it?"
	DefaultComplete = "Thank you! Your information has been collected successfully. You can now start a new session if needed."
	DefaultRepeat   = "I'm sorry, could you repeat that?"
)

// DefaultPrompts ask for the field solicited at each position.
var DefaultPrompts = map[types.Position]string{
	{State: types.StateAwaitZip}:                                      "Could you please provide your ZIP code?",
	{State: types.StateAwaitName}:                                     "What is your full name?",
	{State: types.StateAwaitEmail}:                                    "What is your email address?",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleID}:     "Would you like to enter a VIN or provide Year, Make, and Body Type?",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleVIN}:    "Please enter the 17-character VIN.",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleYear}:   "What year is the vehicle?",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleMake}:   "What is the make of the vehicle?",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleBody}:   "What is the body type?",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleUse}:    "How do you use this vehicle? (Commuting, Commercial, Farming, Business)",
	{State: types.StateVehicleSubflow, Step: types.StepBlindSpot}:     "Does this vehicle have blind spot warning? (Yes/No)",
	{State: types.StateVehicleSubflow, Step: types.StepCommuteDays}:   "How many days per week do you commute?",
	{State: types.StateVehicleSubflow, Step: types.StepCommuteMiles}:  "How many miles is your one-way commute?",
	{State: types.StateVehicleSubflow, Step: types.StepAnnualMileage}: "What is your estimated annual mileage for this vehicle?",
	{State: types.StateAwaitAddVehicle}:                               "Would you like to add another vehicle?",
	{State: types.StateAwaitLicenseType}:                              "What type of US license do you have? (Foreign, Personal, Commercial)",
	{State: types.StateAwaitLicenseStatus}:                            "What is your license status? (Valid/Suspended)",
	{State: types.StateComplete}:                                      DefaultComplete,
}

// DefaultRejections explain each failure reason.
var DefaultRejections = map[types.Reason]string{
	types.ReasonInvalidZipFormat:      "Please provide a valid 5-digit ZIP code.",
	types.ReasonNameEmpty:             "Please provide your full name.",
	types.ReasonEmailMalformed:        "Please provide a valid email address.",
	types.ReasonVINInvalidFormat:      "Please provide a valid 17-character VIN.",
	types.ReasonVINNotFound:           "I couldn't find a vehicle for that VIN. Please double-check it, or say manual to enter the year, make, and body type.",
	types.ReasonVINLookupFailed:       "I couldn't reach the vehicle lookup service just now. Please send the VIN again in a moment.",
	types.ReasonLookupPending:         "The vehicle lookup is still busy. Please send the VIN again in a moment.",
	types.ReasonVehicleIDUnrecognized: "Would you like to enter a VIN or provide Year, Make, and Body Type?",
	types.ReasonYearInvalid:           "Please provide a valid vehicle year (e.g., 2020).",
	types.ReasonMakeEmpty:             "Please provide the vehicle make.",
	types.ReasonMakeUnknown:           "I don't recognize that make. Please check the spelling (e.g., Toyota, Ford, Honda).",
	types.ReasonBodyTypeEmpty:         "Please provide the body type (e.g., Sedan, SUV, Truck).",
	types.ReasonVehicleUseInvalid:     "Please specify: Commuting, Commercial, Farming, or Business.",
	types.ReasonYesNoUnrecognized:     "Please answer Yes or No.",
	types.ReasonCommuteDaysRange:      "Please provide days per week (1-7).",
	types.ReasonMilesInvalid:          "Please provide the one-way distance in miles.",
	types.ReasonAnnualMileageInvalid:  "Please provide estimated annual mileage.",
	types.ReasonLicenseTypeInvalid:    "Please specify: Foreign, Personal, or Commercial.",
	types.ReasonLicenseStatusInvalid:  "Please specify: Valid or Suspended.",
}

// LocalPhraser answers from fixed sentences and never calls out.
type LocalPhraser struct {
	Welcome    string
	Prompts    map[types.Position]string
	Rejections map[types.Reason]string
}

func NewLocalPhraser() *LocalPhraser {
	return &LocalPhraser{
		Welcome:    DefaultWelcome,
		Prompts:    DefaultPrompts,
		Rejections: DefaultRejections,
	}
}

func (p *LocalPhraser) Phrase(ctx context.Context, req *types.PhraseRequest) (string, error) {
	if req == nil || req.Session == nil {
		return "", errors.New("phrase request has no session")
	}
	if req.Greeting() {
		return p.Welcome, nil
	}
	out := req.Outcome
	switch {
	case out.Diverted():
		return CalmingMessage(req.Quote), nil
	case out.Rejected():
		if msg, ok := p.Rejections[out.Reason()]; ok {
			return msg, nil
		}
		return p.prompt(out.To), nil
	}

	next := p.prompt(out.To)
	if out.NoOp {
		return next, nil
	}
	if lead := acknowledge(req.Session, out); lead != "" {
		return lead + " " + next, nil
	}
	return next, nil
}

func (p *LocalPhraser) prompt(pos types.Position) string {
	if msg, ok := p.Prompts[pos]; ok {
		return msg
	}
	return DefaultRepeat
}

// acknowledge confirms the few answers worth repeating back.
func acknowledge(s *types.Session, out *types.TurnOutcome) string {
	switch {
	case out.From.State == types.StateVehicleSubflow && out.From.Step.IdentificationStep() &&
		out.To.Step == types.StepVehicleUse && s.Draft != nil && s.Draft.Vehicle.Decoded != nil:
		rec := s.Draft.Vehicle.Decoded
		found := strings.Join(strings.Fields(fmt.Sprintf("%s %s", rec.Make, rec.Model)), " ")
		if rec.Year > 0 {
			found = fmt.Sprintf("%d %s", rec.Year, found)
		}
		return fmt.Sprintf("Found your %s.", found)
	case out.From.State == types.StateVehicleSubflow && out.To.State == types.StateAwaitAddVehicle:
		return fmt.Sprintf("Got it, that's %s saved.", vehicleCount(len(s.Vehicles)))
	}
	return ""
}

func vehicleCount(n int) string {
	if n == 1 {
		return "1 vehicle"
	}
	return fmt.Sprintf("%d vehicles", n)
}

// FailbackPhraser returns the first reply produced without error.
type FailbackPhraser struct {
	phrasers []Phraser
}

func NewFailbackPhraser(phrasers ...Phraser) *FailbackPhraser {
	return &FailbackPhraser{phrasers: phrasers}
}

func (p *FailbackPhraser) Phrase(ctx context.Context, req *types.PhraseRequest) (string, error) {
	var lastErr error
	for _, phraser := range p.phrasers {
		msg, err := phraser.Phrase(ctx, req)
		if err == nil {
			return msg, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no phrasers configured")
	}
	return "", fmt.Errorf("all phrasers failed: %w", lastErr)
}
