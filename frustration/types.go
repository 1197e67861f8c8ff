// Package frustration decides whether an utterance should be answered with
// a calming reply instead of being processed as an answer.
package frustration

import "context"

type Detector interface {
	Detect(ctx context.Context, utterance string) (bool, error)
}
