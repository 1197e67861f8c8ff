// Package structured turns a tool-calling chat model into a typed function:
// the model is forced to call a single tool whose arguments are TOutput.
package structured

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// PromptBuilder renders the messages sent to the model for one input.
type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

type Chain[TInput, TOutput any] struct {
	ToolInfo *schema.ToolInfo

	model  model.ToolCallingChatModel
	prompt PromptBuilder[TInput]
}

// NewChain derives the tool's parameter schema from TOutput's json and
// jsonschema tags.
func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	promptBuilder PromptBuilder[TInput],
	toolName string,
	toolDesc string,
) (*Chain[TInput, TOutput], error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required for tool %s", toolName)
	}
	info, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &Chain[TInput, TOutput]{ToolInfo: info, model: chatModel, prompt: promptBuilder}, nil
}

func (c *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := c.prompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}
	reply, err := c.model.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{c.ToolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, c.ToolInfo.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	if reply == nil || len(reply.ToolCalls) == 0 {
		var content string
		if reply != nil {
			content = reply.Content
		}
		return nil, fmt.Errorf("no ToolCall found in model response: %s", content)
	}

	// Some providers leave the function name empty on forced calls.
	for _, call := range reply.ToolCalls {
		if name := call.Function.Name; name == "" || name == c.ToolInfo.Name {
			out := new(TOutput)
			if err := sonic.UnmarshalString(call.Function.Arguments, out); err != nil {
				return nil, fmt.Errorf("parse ToolCall arguments failed: %w", err)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("model did not call %s", c.ToolInfo.Name)
}
