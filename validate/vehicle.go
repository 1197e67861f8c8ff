package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tbxark/onboard/types"
)

const (
	VINLength    = 17
	MinModelYear = 1980
)

var vinAlphabet = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// VINCandidate returns the token of input that is most likely meant as a
// VIN: a 17-character alphanumeric token if there is one, otherwise the
// longest alphanumeric token that mixes letters and digits or is at least
// 11 characters long. ok is false when nothing looks like a VIN.
func VINCandidate(input string) (string, bool) {
	var best string
	for _, f := range strings.Fields(strings.ToUpper(input)) {
		f = strings.Trim(f, emailEdgePunct+"#:")
		if !isAlnum(f) {
			continue
		}
		if len(f) == VINLength {
			return f, true
		}
		if (len(f) >= 11 || (hasDigit(f) && hasLetter(f) && len(f) >= 6)) && len(f) > len(best) {
			best = f
		}
	}
	return best, best != ""
}

// VIN accepts exactly 17 letters and digits without I, O or Q. A single-word
// answer is taken as the VIN attempt even when it does not look like one.
func VIN(input string) (string, error) {
	candidate, ok := VINCandidate(input)
	if !ok {
		fields := strings.Fields(strings.ToUpper(input))
		if len(fields) != 1 {
			return "", invalid(types.ReasonVINInvalidFormat, "no VIN found")
		}
		candidate = fields[0]
	}
	if len(candidate) != VINLength {
		return "", invalid(types.ReasonVINInvalidFormat, fmt.Sprintf("VIN must be %d characters, got %d", VINLength, len(candidate)))
	}
	if !vinAlphabet.MatchString(candidate) {
		return "", invalid(types.ReasonVINInvalidFormat, "VIN may only contain letters and digits, excluding I, O and Q")
	}
	return candidate, nil
}

var integerPattern = regexp.MustCompile(`\b(\d+)\b`)

// Year accepts the first standalone integer when it falls in
// [MinModelYear, now.Year()+1].
func Year(input string, now time.Time) (int, error) {
	m := integerPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, invalid(types.ReasonYearInvalid, "no year found")
	}
	year, err := strconv.Atoi(m[1])
	maxYear := now.Year() + 1
	if err != nil || year < MinModelYear || year > maxYear {
		return 0, invalid(types.ReasonYearInvalid, fmt.Sprintf("year must be between %d and %d", MinModelYear, maxYear))
	}
	return year, nil
}

// Make normalizes the manufacturer name. Whether the make exists is up to
// the vehicle lookup.
func Make(input string) (string, error) {
	name := strings.Trim(collapse(input), ".!,")
	if name == "" {
		return "", invalid(types.ReasonMakeEmpty, "make must not be empty")
	}
	return titleCase(name), nil
}

var bodyTypes = []struct {
	word  string
	label string
}{
	{"minivan", "Minivan"},
	{"sedan", "Sedan"},
	{"suv", "SUV"},
	{"crossover", "Crossover"},
	{"pickup", "Pickup"},
	{"truck", "Truck"},
	{"coupe", "Coupe"},
	{"hatchback", "Hatchback"},
	{"wagon", "Wagon"},
	{"convertible", "Convertible"},
	{"van", "Van"},
	{"motorcycle", "Motorcycle"},
}

// BodyType maps a known body word to its label and otherwise keeps the
// answer title-cased.
func BodyType(input string) (string, error) {
	tokens := words(input)
	for _, b := range bodyTypes {
		for _, t := range tokens {
			if t == b.word || t == b.word+"s" {
				return b.label, nil
			}
		}
	}
	body := strings.Trim(collapse(input), ".!,")
	if body == "" {
		return "", invalid(types.ReasonBodyTypeEmpty, "body type must not be empty")
	}
	return titleCase(body), nil
}

var (
	useStems = map[types.VehicleUse][]string{
		types.UseCommuting:  {"commut"},
		types.UseCommercial: {"commercial"},
		types.UseFarming:    {"farming"},
		types.UseBusiness:   {"business"},
	}
	useSynonyms = map[types.VehicleUse][]string{
		types.UseCommercial: {"delivery", "deliveries", "rideshare", "uber", "lyft", "hauling"},
		types.UseFarming:    {"farm", "ranch", "agricultur"},
		types.UseBusiness:   {"work", "office", "job", "clients"},
	}
)

// VehicleUse matches the four uses by name first, then by synonym. An
// answer naming two uses is rejected rather than guessed.
func VehicleUse(input string) (types.VehicleUse, error) {
	tokens := words(input)
	if use, n := matchUse(tokens, useStems); n == 1 {
		return use, nil
	} else if n > 1 {
		return "", invalid(types.ReasonVehicleUseInvalid, "more than one use mentioned")
	}
	if use, n := matchUse(tokens, useSynonyms); n == 1 {
		return use, nil
	}
	return "", invalid(types.ReasonVehicleUseInvalid, "expected Commuting, Commercial, Farming or Business")
}

func matchUse(tokens []string, table map[types.VehicleUse][]string) (types.VehicleUse, int) {
	var found types.VehicleUse
	n := 0
	for _, use := range types.VehicleUses {
		if hasPrefix(tokens, table[use]...) {
			found = use
			n++
		}
	}
	return found, n
}

var dayWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
	"once": 1, "twice": 2, "weekdays": 5, "daily": 7, "everyday": 7,
}

// CommuteDays accepts a digit or number word from 1 to 7.
func CommuteDays(input string) (int, error) {
	if m := integerPattern.FindStringSubmatch(input); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil || days < 1 || days > 7 {
			return 0, invalid(types.ReasonCommuteDaysRange, "days per week must be between 1 and 7")
		}
		return days, nil
	}
	for _, t := range words(input) {
		if d, ok := dayWords[t]; ok {
			return d, nil
		}
	}
	return 0, invalid(types.ReasonCommuteDaysRange, "days per week must be between 1 and 7")
}

var numberPattern = regexp.MustCompile(`(?i)(-?\d[\d,]*(?:\.\d+)?)\s*(k\b)?`)

func parseNumber(input string) (float64, bool) {
	m := numberPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		n *= 1000
	}
	return n, true
}

// Miles accepts a positive one-way distance; thousands separators are
// allowed.
func Miles(input string) (float64, error) {
	n, ok := parseNumber(input)
	if !ok || n <= 0 {
		return 0, invalid(types.ReasonMilesInvalid, "miles must be a number greater than 0")
	}
	return n, nil
}

// AnnualMileage accepts a positive yearly mileage such as "12,000" or "12k".
func AnnualMileage(input string) (float64, error) {
	n, ok := parseNumber(input)
	if !ok || n <= 0 {
		return 0, invalid(types.ReasonAnnualMileageInvalid, "annual mileage must be a number greater than 0")
	}
	return n, nil
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}
