package validate

import (
	"strings"

	"github.com/tbxark/onboard/types"
)

var (
	truthy = setOf("yes", "y", "yeah", "yea", "ya", "yep", "yup", "sure", "correct", "true", "affirmative", "ok", "okay", "absolutely", "definitely")
	falsy  = setOf("no", "n", "nope", "nah", "not", "false", "don't", "doesn't", "dont", "doesnt", "negative", "never", "without")

	addMore = setOf("another", "add", "more", "additional")
	addDone = setOf("done", "finished", "none")

	addDonePhrases = []string{"that's all", "that's it", "thats all", "thats it", "all set", "nothing else"}
)

// YesNo reads a yes/no answer. An answer carrying both a yes word and a no
// word is rejected.
func YesNo(input string) (bool, error) {
	tokens := words(input)
	yes, no := hasWord(tokens, truthy), hasWord(tokens, falsy)
	switch {
	case yes && !no:
		return true, nil
	case no && !yes:
		return false, nil
	case yes && no:
		return false, invalid(types.ReasonYesNoUnrecognized, "answer is both yes and no")
	}
	return false, invalid(types.ReasonYesNoUnrecognized, "expected yes or no")
}

// AddAnother is YesNo plus the phrasings people use for "add one more" and
// "that's all".
func AddAnother(input string) (bool, error) {
	answer, err := YesNo(input)
	if err == nil {
		return answer, nil
	}
	tokens := words(input)
	if hasWord(tokens, truthy) && hasWord(tokens, falsy) {
		return false, err
	}
	lower := strings.ToLower(strings.ReplaceAll(input, "’", "'"))
	done := hasWord(tokens, addDone)
	for _, p := range addDonePhrases {
		if strings.Contains(lower, p) {
			done = true
		}
	}
	more := hasWord(tokens, addMore)
	switch {
	case more && !done:
		return true, nil
	case done && !more:
		return false, nil
	}
	return false, err
}

// LicenseType accepts Foreign, Personal or Commercial (CDL counts as
// Commercial).
func LicenseType(input string) (types.LicenseType, error) {
	tokens := words(input)
	var found []types.LicenseType
	if hasPrefix(tokens, "foreign", "international") {
		found = append(found, types.LicenseForeign)
	}
	if hasPrefix(tokens, "personal") {
		found = append(found, types.LicensePersonal)
	}
	if hasPrefix(tokens, "commercial", "cdl") {
		found = append(found, types.LicenseCommercial)
	}
	if len(found) != 1 {
		return "", invalid(types.ReasonLicenseTypeInvalid, "expected Foreign, Personal or Commercial")
	}
	return found[0], nil
}

var (
	validWords     = setOf("valid", "active", "good", "current")
	suspendedWords = []string{"suspend", "revoked"}
)

// LicenseStatus accepts Valid or Suspended and a few everyday variants.
func LicenseStatus(input string) (types.LicenseStatus, error) {
	tokens := words(input)
	valid := hasWord(tokens, validWords)
	suspended := hasPrefix(tokens, suspendedWords...)
	switch {
	case valid && !suspended:
		return types.LicenseValid, nil
	case suspended && !valid:
		return types.LicenseSuspended, nil
	}
	return "", invalid(types.ReasonLicenseStatusInvalid, "expected Valid or Suspended")
}
