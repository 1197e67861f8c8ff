package validate

import (
	"regexp"
	"strings"

	"github.com/tbxark/onboard/types"
)

var zipPattern = regexp.MustCompile(`\b(\d{5})\b`)

// Zip accepts the first standalone run of exactly five ASCII digits.
func Zip(input string) (string, error) {
	m := zipPattern.FindStringSubmatch(input)
	if m == nil {
		return "", invalid(types.ReasonInvalidZipFormat, "expected a 5-digit ZIP code")
	}
	return m[1], nil
}

var nameLeadIns = []string{"my name is ", "my name's ", "name is ", "i am ", "i'm ", "it's ", "this is ", "call me "}

// FullName strips a conversational lead-in and collapses whitespace.
func FullName(input string) (string, error) {
	name := collapse(strings.ReplaceAll(input, "’", "'"))
	lower := strings.ToLower(name)
	for _, lead := range nameLeadIns {
		if strings.HasPrefix(lower, lead) {
			name = name[len(lead):]
			break
		}
	}
	name = strings.TrimRight(collapse(name), ".!,")
	if name == "" {
		return "", invalid(types.ReasonNameEmpty, "name must contain at least one word")
	}
	return name, nil
}

const emailEdgePunct = `.,;:!?()[]<>"'`

// Email picks the single token containing "@" and checks its shape: one
// "@", a non-empty local part, and a domain with a dot that is not at
// either end. The address is returned lowercased.
func Email(input string) (string, error) {
	var candidate string
	for _, f := range strings.Fields(input) {
		if !strings.Contains(f, "@") {
			continue
		}
		if candidate != "" {
			return "", invalid(types.ReasonEmailMalformed, "more than one address given")
		}
		candidate = strings.Trim(f, emailEdgePunct)
	}
	if candidate == "" {
		return "", invalid(types.ReasonEmailMalformed, "no @ found")
	}
	if strings.Count(candidate, "@") != 1 {
		return "", invalid(types.ReasonEmailMalformed, "address must contain exactly one @")
	}
	local, domain, _ := strings.Cut(candidate, "@")
	switch {
	case local == "":
		return "", invalid(types.ReasonEmailMalformed, "missing local part")
	case domain == "":
		return "", invalid(types.ReasonEmailMalformed, "missing domain")
	case !strings.Contains(domain, "."), strings.HasPrefix(domain, "."), strings.HasSuffix(domain, "."):
		return "", invalid(types.ReasonEmailMalformed, "domain must contain a dot")
	case strings.Contains(domain, ".."):
		return "", invalid(types.ReasonEmailMalformed, "domain has an empty label")
	}
	return strings.ToLower(candidate), nil
}
