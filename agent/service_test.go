package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/onboard/dialogue"
	"github.com/tbxark/onboard/frustration"
	"github.com/tbxark/onboard/quote"
	"github.com/tbxark/onboard/types"
)

type memoryRecorder struct {
	mu      sync.Mutex
	records []types.TurnRecord
	err     error
}

func (r *memoryRecorder) Record(ctx context.Context, rec types.TurnRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func (r *memoryRecorder) all() []types.TurnRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.TurnRecord(nil), r.records...)
}

type countingObserver struct {
	mu        sync.Mutex
	started   int
	completed int
	turns     map[types.OutcomeKind]int
	failures  map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{turns: map[types.OutcomeKind]int{}, failures: map[string]int{}}
}

func (o *countingObserver) SessionStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) TurnProcessed(out *types.TurnOutcome, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns[out.Kind]++
}

func (o *countingObserver) SessionCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *countingObserver) CollaboratorFailed(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[name]++
}

type capturingPhraser struct {
	mu       sync.Mutex
	requests []*types.PhraseRequest
	err      error
}

func (p *capturingPhraser) Phrase(ctx context.Context, req *types.PhraseRequest) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	return dialogue.NewLocalPhraser().Phrase(ctx, req)
}

func (p *capturingPhraser) last() *types.PhraseRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func newTestService(t *testing.T, phraser dialogue.Phraser, opts ...ServiceOption) *Service {
	t.Helper()
	flow := newTestFlow(t, newStubLookup(), frustration.NewKeywordDetector())
	n := 0
	var mu sync.Mutex
	defaults := []ServiceOption{
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("session-%d", n)
		}),
		WithServiceClock(func() time.Time { return testNow }),
	}
	svc, err := NewService(flow, NewMemorySessionStore(), phraser, append(defaults, opts...)...)
	require.NoError(t, err)
	return svc
}

func TestStartSession(t *testing.T) {
	t.Parallel()
	obs := newCountingObserver()
	svc := newTestService(t, nil, WithObserver(obs))

	reply, err := svc.StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-1", reply.Session.ID)
	assert.Equal(t, types.StateAwaitZip, reply.Session.State)
	assert.Equal(t, dialogue.DefaultWelcome, reply.Message)
	assert.Nil(t, reply.Outcome)
	assert.Equal(t, 1, reply.Progress.Step)
	assert.Equal(t, 1, obs.started)
}

func TestSubmitUnknownSession(t *testing.T) {
	t.Parallel()
	rec := &memoryRecorder{}
	svc := newTestService(t, nil, WithTurnRecorder(rec))
	_, err := svc.Submit(context.Background(), "missing", "90210")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, rec.all())

	_, err = svc.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitPersistsAndRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &memoryRecorder{}
	obs := newCountingObserver()
	svc := newTestService(t, nil, WithTurnRecorder(rec), WithObserver(obs))

	start, err := svc.StartSession(ctx)
	require.NoError(t, err)
	id := start.Session.ID

	reply, err := svc.Submit(ctx, id, "90210")
	require.NoError(t, err)
	assert.True(t, reply.Outcome.Accepted())
	assert.Equal(t, "What is your full name?", reply.Message)
	assert.Equal(t, 2, reply.Progress.Step)

	snap, err := svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitName, snap.Session.State)
	assert.Equal(t, "90210", snap.Session.Data.ZipCode)

	reply, err = svc.Submit(ctx, id, "  ")
	require.NoError(t, err)
	assert.Equal(t, types.ReasonNameEmpty, reply.Outcome.Reason())
	assert.Equal(t, "Please provide your full name.", reply.Message)

	records := rec.all()
	require.Len(t, records, 2)
	assert.Equal(t, types.Position{State: types.StateAwaitZip}, records[0].Before)
	assert.Equal(t, types.Position{State: types.StateAwaitName}, records[0].After)
	assert.Equal(t, "90210", records[0].Utterance)
	assert.Equal(t, "What is your full name?", records[0].Reply)
	assert.Equal(t, records[1].Before, records[1].After)
	assert.Equal(t, 1, obs.turns[types.OutcomeAccepted])
	assert.Equal(t, 1, obs.turns[types.OutcomeRejected])
}

func TestSubmitDivertedSharesQuote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t, nil, WithQuotes(quote.NewStaticFetcher(`"Keep going." - Anon`)))
	start, err := svc.StartSession(ctx)
	require.NoError(t, err)

	reply, err := svc.Submit(ctx, start.Session.ID, "I want to speak to a real person")
	require.NoError(t, err)
	assert.True(t, reply.Outcome.Diverted())
	assert.Equal(t, dialogue.CalmingMessage(`"Keep going." - Anon`), reply.Message)
	assert.Equal(t, types.StateAwaitZip, reply.Session.State)
}

type brokenQuotes struct{}

func (brokenQuotes) FetchQuote(ctx context.Context) (string, error) {
	return "", errors.New("offline")
}

func TestSubmitCollaboratorFailuresAreNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	obs := newCountingObserver()
	phraser := &capturingPhraser{err: errors.New("model overloaded")}
	svc := newTestService(t, phraser,
		WithObserver(obs),
		WithQuotes(brokenQuotes{}),
		WithTurnRecorder(&memoryRecorder{err: errors.New("disk full")}),
	)
	start, err := svc.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, dialogue.DefaultWelcome, start.Message)

	reply, err := svc.Submit(ctx, start.Session.ID, "this is stupid")
	require.NoError(t, err)
	assert.Equal(t, dialogue.CalmingMessage(""), reply.Message)

	reply, err = svc.Submit(ctx, start.Session.ID, "90210")
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitName, reply.Session.State)

	assert.Equal(t, 3, obs.failures["phraser"])
	assert.Equal(t, 1, obs.failures["quote"])
	assert.Equal(t, 2, obs.failures["recorder"])
}

func TestSubmitPassesHistoryToPhraser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	phraser := &capturingPhraser{}
	svc := newTestService(t, phraser, WithHistory(NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: 3})))
	start, err := svc.StartSession(ctx)
	require.NoError(t, err)
	id := start.Session.ID

	_, err = svc.Submit(ctx, id, "90210")
	require.NoError(t, err)
	hist := phraser.last().History
	require.Len(t, hist, 1)
	assert.Equal(t, schema.Assistant, hist[0].Role)

	_, err = svc.Submit(ctx, id, "Jane Doe")
	require.NoError(t, err)
	hist = phraser.last().History
	require.Len(t, hist, 3)
	assert.Equal(t, "90210", hist[1].Content)
	assert.Equal(t, "Jane Doe", phraser.last().LastUserInput)
}

func TestSubmitCompleteSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	obs := newCountingObserver()
	svc := newTestService(t, nil, WithObserver(obs))
	start, err := svc.StartSession(ctx)
	require.NoError(t, err)
	id := start.Session.ID

	for _, in := range []string{"90210", "Jane Doe", "jane@example.com", testVIN, "business", "no", "5000", "no", "personal", "valid"} {
		_, err := svc.Submit(ctx, id, in)
		require.NoError(t, err, in)
	}
	reply, err := svc.Submit(ctx, id, "anything else?")
	require.NoError(t, err)
	assert.True(t, reply.Outcome.NoOp)
	assert.Equal(t, dialogue.DefaultComplete, reply.Message)
	assert.Equal(t, 100, reply.Progress.Percent)
	assert.Equal(t, 1, obs.completed)
}

func TestSessionsRunIndependently(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t, nil)
	inputs := []string{"90210", "Jane Doe", "jane@example.com", testVIN, "commuting", "yes", "5", "10", "no", "foreign"}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		start, err := svc.StartSession(ctx)
		require.NoError(t, err)
		ids[i] = start.Session.ID
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, in := range inputs {
				_, err := svc.Submit(ctx, id, in)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		snap, err := svc.Session(ctx, id)
		require.NoError(t, err)
		assert.True(t, snap.Session.Complete(), id)
		require.Len(t, snap.Session.Vehicles, 1)
	}
	assert.Zero(t, svc.locks.size())
}

func TestNewServiceRequiresFlowAndStore(t *testing.T) {
	t.Parallel()
	_, err := NewService(nil, NewMemorySessionStore(), nil)
	assert.Error(t, err)
}
