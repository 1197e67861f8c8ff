package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes a Service as an eino adk.Agent. The session is taken from
// the run context (WithSessionID); without one a new session is started and
// the greeting is returned.
type Agent struct {
	name        string
	description string
	service     *Service
}

func NewAgent(name, description string, service *Service) *Agent {
	return &Agent{
		name:        name,
		description: description,
		service:     service,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		reply, err := a.run(ctx, input)
		if err != nil {
			gen.Send(&adk.AgentEvent{Err: err})
			return
		}
		gen.Send(&adk.AgentEvent{
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message: &schema.Message{
						Role:    schema.Assistant,
						Content: reply.Message,
					},
					Role: schema.Assistant,
				},
			},
		})
	}()
	return iter
}

func (a *Agent) run(ctx context.Context, input *adk.AgentInput) (*Reply, error) {
	id, ok := SessionIDFromContext(ctx)
	if !ok {
		reply, err := a.service.StartSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("start session failed: %w", err)
		}
		return reply, nil
	}
	if input == nil || len(input.Messages) == 0 {
		return nil, errors.New("no messages in input")
	}
	reply, err := a.service.Submit(ctx, id, input.Messages[len(input.Messages)-1].Content)
	if err != nil {
		return nil, fmt.Errorf("submit turn failed: %w", err)
	}
	return reply, nil
}
