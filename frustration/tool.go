package frustration

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/onboard/structured"
)

const (
	detectFrustrationToolName        = "report_sentiment"
	detectFrustrationToolDescription = "Report whether the customer's latest message shows frustration with the onboarding conversation."
)

// DefaultDetectSystemPromptTemplate may contain a single "%s" placeholder
// for the tool name.
const DefaultDetectSystemPromptTemplate = `
You monitor an insurance onboarding chat. The assistant asks one question at a time (ZIP code, name, email, vehicles, license).

Decide whether the customer's latest message expresses frustration, anger, or a wish to stop talking to the assistant and reach a human.

- A plain answer to the question, even a terse or wrong one, is not frustration.
- Words such as "no", "done" or "broken" inside an ordinary answer are not frustration by themselves.
- Complaints about the process, insults, or asking for a person are frustration.

Call the '%s' tool with the result.
`

type sentimentReport struct {
	Frustrated bool    `json:"frustrated" jsonschema:"required,description=Whether the message shows frustration"`
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1,description=Confidence between 0 and 1"`
}

type toolDetectorOptions struct {
	systemPromptTemplate string
	threshold            float64
}

type ToolDetectorOption func(*toolDetectorOptions)

func WithDetectSystemPromptTemplate(tpl string) ToolDetectorOption {
	return func(o *toolDetectorOptions) {
		o.systemPromptTemplate = tpl
	}
}

// WithThreshold sets the confidence a positive report needs. Reports with
// no confidence are taken at face value.
func WithThreshold(threshold float64) ToolDetectorOption {
	return func(o *toolDetectorOptions) {
		o.threshold = threshold
	}
}

// ToolBasedDetector asks a tool-calling chat model for a sentiment verdict.
type ToolBasedDetector struct {
	chain     *structured.Chain[string, sentimentReport]
	threshold float64
}

func NewToolBasedDetector(chatModel model.ToolCallingChatModel, opts ...ToolDetectorOption) (*ToolBasedDetector, error) {
	options := toolDetectorOptions{
		systemPromptTemplate: DefaultDetectSystemPromptTemplate,
		threshold:            0.5,
	}
	for _, opt := range opts {
		opt(&options)
	}
	systemPrompt := fmt.Sprintf(options.systemPromptTemplate, detectFrustrationToolName)
	chain, err := structured.NewChain[string, sentimentReport](
		chatModel,
		func(ctx context.Context, utterance string) ([]*schema.Message, error) {
			return []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(fmt.Sprintf("# Customer message:\n%s", utterance)),
			}, nil
		},
		detectFrustrationToolName,
		detectFrustrationToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedDetector{chain: chain, threshold: options.threshold}, nil
}

func (d *ToolBasedDetector) Detect(ctx context.Context, utterance string) (bool, error) {
	report, err := d.chain.Invoke(ctx, utterance)
	if err != nil {
		return false, err
	}
	if !report.Frustrated {
		return false, nil
	}
	return report.Confidence == 0 || report.Confidence >= d.threshold, nil
}
