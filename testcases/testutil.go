// Package testcases runs whole onboarding conversations against a live chat
// model. They are skipped unless ONBOARD_RUN_LIVE_TESTS=1.
package testcases

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/config"
	"github.com/tbxark/onboard/dialogue"
	"github.com/tbxark/onboard/frustration"
	"github.com/tbxark/onboard/types"
	"github.com/tbxark/onboard/vehicle"
)

// fixedLookup keeps the vPIC API out of live runs.
type fixedLookup struct{}

func (fixedLookup) LookupVIN(ctx context.Context, vin string) (*types.VehicleRecord, error) {
	return &types.VehicleRecord{Year: 2003, Make: "HONDA", Model: "Accord", BodyType: "Coupe"}, nil
}

func (fixedLookup) IsKnownMake(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func InitChatModel(t *testing.T) *openai.ChatModel {
	if os.Getenv("ONBOARD_RUN_LIVE_TESTS") != "1" {
		t.Skip("set ONBOARD_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}

	ctx := context.Background()
	conf, err := config.Load()
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	if !conf.LLMEnabled() {
		t.Skip("OPENAI_API_KEY is empty")
		return nil
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  conf.OpenAIAPIKey,
		Model:   conf.OpenAIModel,
		BaseURL: conf.OpenAIBaseURL,
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	return chatModel
}

type serviceOptions struct {
	toolDetector bool
}

type ServiceOption func(*serviceOptions)

// WithToolDetector asks the chat model whether the user is frustrated.
func WithToolDetector() ServiceOption {
	return func(o *serviceOptions) {
		o.toolDetector = true
	}
}

var sessionSeq atomic.Int64

func NewTestService(t *testing.T, opts ...ServiceOption) *agent.Service {
	chatModel := InitChatModel(t)
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var detector frustration.Detector = frustration.NewKeywordDetector()
	if options.toolDetector {
		toolDetector, err := frustration.NewToolBasedDetector(chatModel)
		if err != nil {
			t.Fatalf("failed to create detector: %v", err)
		}
		detector = toolDetector
	}
	flow, err := agent.NewFlow(vehicle.NewResolver(fixedLookup{}), detector)
	if err != nil {
		t.Fatalf("failed to create flow: %v", err)
	}
	svc, err := agent.NewService(
		flow,
		agent.NewMemorySessionStore(),
		dialogue.NewToolBasedPhraser(chatModel),
		agent.WithStateSchema(),
		agent.WithIDGenerator(func() string {
			return fmt.Sprintf("live-%d", sessionSeq.Add(1))
		}),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// submitAll sends every answer in order and fails on the first one that is
// not accepted.
func submitAll(t *testing.T, svc *agent.Service, id string, answers ...string) *agent.Reply {
	t.Helper()
	var reply *agent.Reply
	for _, answer := range answers {
		var err error
		reply, err = svc.Submit(context.Background(), id, answer)
		if err != nil {
			t.Fatalf("submit %q failed: %v", answer, err)
		}
		if !reply.Outcome.Accepted() {
			t.Fatalf("answer %q was %s (%s)", answer, reply.Outcome.Kind, reply.Outcome.Reason())
		}
		t.Logf("user: %s\nassistant: %s", answer, reply.Message)
	}
	return reply
}
