// Package validate holds the per-field checks applied to a raw utterance.
//
// Every function extracts the candidate value from free text (so "my zip is
// 90210" works as well as "90210"), normalizes it, and returns a
// *types.Failure on rejection. Nothing here keeps state.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/tbxark/onboard/types"
)

var wordSplitter = regexp.MustCompile(`[^\p{L}\p{N}']+`)

// words lowercases s and splits it on anything that is not a letter, digit
// or apostrophe. Curly apostrophes are folded to ASCII.
func words(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	parts := wordSplitter.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		p = strings.Trim(p, "'")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasWord(tokens []string, set map[string]bool) bool {
	for _, t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}

func hasPrefix(tokens []string, prefixes ...string) bool {
	for _, t := range tokens {
		for _, p := range prefixes {
			if strings.HasPrefix(t, p) {
				return true
			}
		}
	}
	return false
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// collapse trims s and squeezes inner whitespace to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleCase upper-cases the first letter of every word and lower-cases the
// rest, except words typed entirely in capitals (BMW, GMC) which are kept.
func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if isUpperWord(f) {
			continue
		}
		r := []rune(strings.ToLower(f))
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

func isUpperWord(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func invalid(reason types.Reason, detail string) error {
	return types.Invalid(reason, detail)
}
