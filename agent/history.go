package agent

import (
	"context"
	"slices"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/onboard/cache"
)

// Trimmer bounds the transcript handed to the phraser.
type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps every system message and the newest N
// conversation messages. N <= 0 keeps only system messages.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	budget := max(t.N, 0)
	kept := make([]*schema.Message, 0, min(len(history), budget+1))
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		switch {
		case m == nil:
		case m.Role == schema.System:
			kept = append(kept, m)
		case budget > 0:
			kept = append(kept, m)
			budget--
		}
	}
	slices.Reverse(kept)
	return kept
}

// Transcript is the per-session chat history. The session comes from the
// context (WithSessionID).
type Transcript interface {
	Load(ctx context.Context) ([]*schema.Message, error)
	Clear(ctx context.Context) error

	// Append adds msgs, skipping one that repeats the previous message,
	// trims, and returns the stored transcript.
	Append(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error)
}

var _ Transcript = (*HistoryStore)(nil)

// HistoryStore keeps transcripts in a cache under the "onboard:history"
// namespace.
type HistoryStore struct {
	store   cache.Store[[]*schema.Message]
	trimmer Trimmer
}

func NewHistoryStore(core cache.Cache[[]*schema.Message], trimmer Trimmer) *HistoryStore {
	return &HistoryStore{
		store:   cache.NewStore(core, "onboard:history", SessionIDFromContext),
		trimmer: trimmer,
	}
}

// NewMemoryHistoryStore is a HistoryStore over an in-process cache; pass
// cache.WithTTL to expire abandoned sessions.
func NewMemoryHistoryStore(trimmer Trimmer, opts ...cache.Option) *HistoryStore {
	return NewHistoryStore(cache.NewMemoryCache[[]*schema.Message](opts...), trimmer)
}

func (s *HistoryStore) Load(ctx context.Context) ([]*schema.Message, error) {
	hist, _, err := s.store.Get(ctx)
	return hist, err
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}

func (s *HistoryStore) Append(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error) {
	hist, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	hist = slices.Clone(hist)
	for _, msg := range msgs {
		if msg == nil || repeats(hist, msg) {
			continue
		}
		hist = append(hist, msg)
	}
	if s.trimmer != nil {
		hist = s.trimmer.Trim(hist)
	}
	if err := s.store.Set(ctx, hist); err != nil {
		return nil, err
	}
	return hist, nil
}

func repeats(hist []*schema.Message, msg *schema.Message) bool {
	if len(hist) == 0 {
		return false
	}
	last := hist[len(hist)-1]
	return last != nil && last.Role == msg.Role && last.Content == msg.Content
}
