package frustration

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// DefaultPhrases are matched on word boundaries, case-insensitively.
var DefaultPhrases = []string{
	"frustrated", "angry", "annoyed",
	"speak to human", "talk to someone", "real person",
	"agent", "representative",
	"this is ridiculous", "hate this", "stupid", "useless", "waste of time",
	"give up", "help me", "not working", "doesn't work", "broken",
}

// KeywordDetector flags an utterance containing any configured phrase as a
// whole-word match. It never errors.
type KeywordDetector struct {
	phrases []string
}

func NewKeywordDetector(phrases ...string) *KeywordDetector {
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := normalize(p); n != "  " {
			normalized = append(normalized, n)
		}
	}
	return &KeywordDetector{phrases: normalized}
}

func (d *KeywordDetector) Detect(ctx context.Context, utterance string) (bool, error) {
	text := normalize(utterance)
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return true, nil
		}
	}
	return false, nil
}

// normalize lowercases s, folds curly apostrophes, and replaces every run of
// other punctuation or space with a single space. The result is padded so
// phrases can be matched as " phrase ".
func normalize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
	return " " + strings.Join(fields, " ") + " "
}

// FailbackDetector returns the first answer given without error.
type FailbackDetector struct {
	detectors []Detector
}

func NewFailbackDetector(detectors ...Detector) *FailbackDetector {
	return &FailbackDetector{detectors: detectors}
}

func (d *FailbackDetector) Detect(ctx context.Context, utterance string) (bool, error) {
	var lastErr error
	for _, detector := range d.detectors {
		frustrated, err := detector.Detect(ctx, utterance)
		if err == nil {
			return frustrated, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return false, nil
	}
	return false, fmt.Errorf("all frustration detectors failed: %w", lastErr)
}
