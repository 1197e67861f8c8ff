package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

func formatCollectedDataSection(data CollectedData) string {
	rows := [][2]string{
		{"ZIP code", data.ZipCode},
		{"Full name", data.FullName},
		{"Email", data.Email},
		{"License type", string(data.LicenseType)},
		{"License status", string(data.LicenseStatus)},
	}
	var buf strings.Builder
	buf.WriteString("# Collected so far:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	n := 0
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		_ = table.Append(row[0], row[1])
		n++
	}
	if n == 0 {
		return "# Collected so far:\n none"
	}
	_ = table.Render()
	return buf.String()
}

func formatVehiclesSection(vehicles []Vehicle) string {
	if len(vehicles) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Vehicles:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("#", "Vehicle", "Use", "Blind spot warning", "Mileage")
	for i, v := range vehicles {
		_ = table.Append(strconv.Itoa(i+1), v.Describe(), string(v.Use), yesNo(v.BlindSpotWarning), v.mileage())
	}
	_ = table.Render()
	return buf.String()
}

func formatFieldSection(field FieldInfo) string {
	if field.JSONPointer == "" {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Next field:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Pointer", "Description")
	_ = table.Append(field.DisplayName, field.JSONPointer, field.Description)
	_ = table.Render()
	return buf.String()
}

func formatOutcomeSection(o *TurnOutcome) string {
	switch o.Kind {
	case OutcomeAccepted:
		if o.NoOp {
			return "# Outcome:\nThe onboarding is already complete; nothing changed."
		}
		return fmt.Sprintf("# Outcome:\naccepted, moved from %s to %s", o.From, o.To)
	case OutcomeRejected:
		return fmt.Sprintf("# Outcome:\nrejected (%s, %s), still at %s", o.Failure.Reason, o.Failure.Class, o.To)
	case OutcomeDiverted:
		return "# Outcome:\nthe user sounds frustrated; nothing was recorded this turn"
	}
	return ""
}

// FormatPhraseRequest renders req as the user message of a phrasing prompt.
func FormatPhraseRequest(req *PhraseRequest) (string, error) {
	if req.Session == nil {
		return "", fmt.Errorf("phrase request has no session")
	}
	sections := []string{
		fmt.Sprintf("# Progress:\n%s", req.Progress),
		formatCollectedDataSection(req.Session.Data),
	}
	if s := formatVehiclesSection(req.Session.Vehicles); s != "" {
		sections = append(sections, s)
	}
	if req.StateSchema != "" {
		sections = append(sections, fmt.Sprintf("# Collected data schema JSON:\n```json\n%s\n```", req.StateSchema))
	}
	if req.LastUserInput != "" {
		sections = append(sections, fmt.Sprintf("# User Answer:\n%s", req.LastUserInput))
	}
	if req.Greeting() {
		sections = append(sections, "# Outcome:\nnew session, greet the user")
	} else if s := formatOutcomeSection(req.Outcome); s != "" {
		sections = append(sections, s)
	}
	if req.Quote != "" {
		sections = append(sections, fmt.Sprintf("# Quote to share:\n%s", req.Quote))
	}
	if s := formatFieldSection(FieldFor(req.Session.Position())); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n"), nil
}

// FormatSummary renders the collected data and vehicles of s as markdown
// tables.
func FormatSummary(s *Session) string {
	sections := []string{formatCollectedDataSection(s.Data)}
	if v := formatVehiclesSection(s.Vehicles); v != "" {
		sections = append(sections, v)
	}
	return strings.Join(sections, "\n\n")
}

// Describe is a short human label for the vehicle.
func (v *Vehicle) Describe() string {
	if v.Mode == ModeVIN {
		if v.Decoded != nil && v.Decoded.Make != "" {
			return strings.TrimSpace(fmt.Sprintf("%d %s %s (VIN %s)", v.Decoded.Year, v.Decoded.Make, v.Decoded.Model, v.VIN))
		}
		return "VIN " + v.VIN
	}
	return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.BodyType)
}

func (v *Vehicle) mileage() string {
	if v.Use == UseCommuting {
		return fmt.Sprintf("%d days/week, %g miles one way", v.DaysPerWeek, v.OneWayMiles)
	}
	return fmt.Sprintf("%g miles/year", v.AnnualMileage)
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "yes"
	default:
		return "no"
	}
}
