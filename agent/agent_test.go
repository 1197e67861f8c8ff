package agent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/onboard/dialogue"
)

func runAgent(t *testing.T, a *Agent, ctx context.Context, text string) *adk.AgentEvent {
	t.Helper()
	iter := a.Run(ctx, &adk.AgentInput{Messages: []adk.Message{schema.UserMessage(text)}})
	event, ok := iter.Next()
	require.True(t, ok)
	_, more := iter.Next()
	assert.False(t, more)
	return event
}

func TestAgentRun(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, nil)
	a := NewAgent("onboard", "Insurance onboarding assistant", svc)
	ctx := context.Background()
	assert.Equal(t, "onboard", a.Name(ctx))

	event := runAgent(t, a, ctx, "hi")
	require.NoError(t, event.Err)
	assert.Equal(t, dialogue.DefaultWelcome, event.Output.MessageOutput.Message.Content)

	ctx = WithSessionID(ctx, "session-1")
	event = runAgent(t, a, ctx, "90210")
	require.NoError(t, event.Err)
	assert.Equal(t, "What is your full name?", event.Output.MessageOutput.Message.Content)
	assert.Equal(t, schema.Assistant, event.Output.MessageOutput.Role)
}

func TestAgentRunErrors(t *testing.T) {
	t.Parallel()
	a := NewAgent("onboard", "", newTestService(t, nil))

	event := runAgent(t, a, WithSessionID(context.Background(), "missing"), "90210")
	assert.ErrorIs(t, event.Err, ErrSessionNotFound)

	iter := a.Run(WithSessionID(context.Background(), "missing"), &adk.AgentInput{})
	event, ok := iter.Next()
	require.True(t, ok)
	assert.Error(t, event.Err)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	t.Parallel()
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}

func TestSessionIDFromContext(t *testing.T) {
	t.Parallel()
	_, ok := SessionIDFromContext(context.Background())
	assert.False(t, ok)
	_, ok = SessionIDFromContext(WithSessionID(context.Background(), ""))
	assert.False(t, ok)
	id, ok := SessionIDFromContext(WithSessionID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}
