package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/tbxark/onboard/dialogue"
	"github.com/tbxark/onboard/quote"
	"github.com/tbxark/onboard/types"
)

const DefaultHistoryLimit = 10

type serviceOptions struct {
	recorder    TurnRecorder
	quotes      quote.Fetcher
	history     Transcript
	observer    Observer
	newID       func() string
	now         func() time.Time
	stateSchema bool
}

type ServiceOption func(*serviceOptions)

func WithTurnRecorder(recorder TurnRecorder) ServiceOption {
	return func(o *serviceOptions) {
		o.recorder = recorder
	}
}

func WithQuotes(quotes quote.Fetcher) ServiceOption {
	return func(o *serviceOptions) {
		o.quotes = quotes
	}
}

func WithHistory(history Transcript) ServiceOption {
	return func(o *serviceOptions) {
		o.history = history
	}
}

func WithObserver(observer Observer) ServiceOption {
	return func(o *serviceOptions) {
		o.observer = observer
	}
}

func WithIDGenerator(newID func() string) ServiceOption {
	return func(o *serviceOptions) {
		o.newID = newID
	}
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithStateSchema includes the JSON schema of the collected data in every
// phrase request.
func WithStateSchema() ServiceOption {
	return func(o *serviceOptions) {
		o.stateSchema = true
	}
}

// Service is the turn API: it loads the session, runs the flow, phrases the
// reply and persists the result. Turns of one session are serialized.
type Service struct {
	flow     *Flow
	sessions SessionStore
	phraser  dialogue.Phraser
	fallback dialogue.Phraser
	recorder TurnRecorder
	quotes   quote.Fetcher
	history  Transcript
	observer Observer
	newID    func() string
	now      func() time.Time
	schema   string
	locks    *keyedMutex
}

func NewService(flow *Flow, sessions SessionStore, phraser dialogue.Phraser, opts ...ServiceOption) (*Service, error) {
	if flow == nil || sessions == nil {
		return nil, errors.New("flow and session store are required")
	}
	options := serviceOptions{
		quotes:   quote.NewStaticFetcher(),
		observer: nopObserver{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.history == nil {
		options.history = NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: DefaultHistoryLimit})
	}
	fallback := dialogue.NewLocalPhraser()
	if phraser == nil {
		phraser = fallback
	}
	svc := &Service{
		flow:     flow,
		sessions: sessions,
		phraser:  phraser,
		fallback: fallback,
		recorder: options.recorder,
		quotes:   options.quotes,
		history:  options.history,
		observer: options.observer,
		newID:    options.newID,
		now:      options.now,
		locks:    newKeyedMutex(),
	}
	if options.stateSchema {
		stateSchema, err := types.CollectedDataSchema()
		if err != nil {
			return nil, err
		}
		svc.schema = stateSchema
	}
	return svc, nil
}

// StartSession creates a session and greets the user.
func (s *Service) StartSession(ctx context.Context) (*Reply, error) {
	sess := s.flow.Start(s.newID())
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.observer.SessionStarted()
	ctx = WithSessionID(ctx, sess.ID)
	message := s.phrase(ctx, &types.PhraseRequest{
		Session:     sess,
		Progress:    types.ProgressOf(sess),
		StateSchema: s.schema,
	})
	s.remember(ctx, schema.AssistantMessage(message, nil))
	slog.Debug("Started session", "session", sess.ID)
	return &Reply{Session: sess, Message: message, Progress: types.ProgressOf(sess)}, nil
}

// Session returns a snapshot of the session without changing it.
func (s *Service) Session(ctx context.Context, id string) (*Reply, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Reply{Session: sess, Progress: types.ProgressOf(sess)}, nil
}

// Submit processes one user utterance for session id.
func (s *Service) Submit(ctx context.Context, id, text string) (*Reply, error) {
	ctx = callbacks.EnsureRunInfo(ctx, "OnboardService", "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"session": id,
		"input":   text,
	})

	defer func() {
		if r := recover(); r != nil {
			callbacks.OnError(ctx, fmt.Errorf("panic in Service.Submit: %v", r))
			panic(r)
		}
	}()

	reply, err := s.submit(ctx, id, text)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	callbacks.OnEnd(ctx, map[string]any{
		"session": id,
		"outcome": reply.Outcome,
		"message": reply.Message,
	})
	return reply, nil
}

func (s *Service) submit(ctx context.Context, id, text string) (*Reply, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = WithSessionID(ctx, id)
	start := s.now()
	before := sess.Position()

	outcome, err := s.flow.Process(ctx, sess, text)
	if err != nil {
		return nil, fmt.Errorf("failed to process turn: %w", err)
	}
	if outcome.Accepted() && !outcome.NoOp {
		if err := s.sessions.Put(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		if sess.Complete() {
			s.observer.SessionCompleted()
		}
	}

	req := &types.PhraseRequest{
		Session:       sess,
		Outcome:       outcome,
		LastUserInput: text,
		Progress:      types.ProgressOf(sess),
		StateSchema:   s.schema,
	}
	if outcome.Diverted() {
		req.Quote = s.quote(ctx)
	}
	req.History = s.loadHistory(ctx)
	message := s.phrase(ctx, req)
	s.remember(ctx, schema.UserMessage(text), schema.AssistantMessage(message, nil))

	s.record(ctx, types.TurnRecord{
		SessionID: id,
		Before:    before,
		After:     sess.Position(),
		Utterance: text,
		Outcome:   outcome,
		Reply:     message,
		At:        s.now(),
	})
	s.observer.TurnProcessed(outcome, s.now().Sub(start))

	return &Reply{
		Session:  sess,
		Outcome:  outcome,
		Message:  message,
		Progress: req.Progress,
	}, nil
}

// phrase falls back to the local sentences when the configured phraser
// fails.
func (s *Service) phrase(ctx context.Context, req *types.PhraseRequest) string {
	message, err := s.phraser.Phrase(ctx, req)
	if err == nil {
		return message
	}
	slog.Warn("Phrasing failed, using local reply", "session", req.Session.ID, "error", err)
	s.observer.CollaboratorFailed("phraser")
	message, _ = s.fallback.Phrase(ctx, req)
	return message
}

func (s *Service) quote(ctx context.Context) string {
	if s.quotes == nil {
		return ""
	}
	q, err := s.quotes.FetchQuote(ctx)
	if err != nil {
		slog.Warn("Quote fetch failed", "error", err)
		s.observer.CollaboratorFailed("quote")
		return ""
	}
	return q
}

func (s *Service) loadHistory(ctx context.Context) []*schema.Message {
	hist, err := s.history.Load(ctx)
	if err != nil {
		slog.Warn("History load failed", "error", err)
		return nil
	}
	return hist
}

func (s *Service) remember(ctx context.Context, msgs ...*schema.Message) {
	if _, err := s.history.Append(ctx, msgs...); err != nil {
		slog.Warn("History append failed", "error", err)
	}
}

func (s *Service) record(ctx context.Context, rec types.TurnRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		slog.Warn("Turn record failed", "session", rec.SessionID, "error", err)
		s.observer.CollaboratorFailed("recorder")
	}
}
