package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/onboard/types"
)

// DefaultPhraseSystemPromptTemplate is the base system prompt of
// ToolBasedPhraser. It may contain a single "%s" placeholder for the language.
const DefaultPhraseSystemPromptTemplate = `You are a friendly, professional insurance onboarding assistant. Your role is to collect information from users in a conversational way. Be concise but warm.

Rules:
1. Only ask the question in your current task, nothing else.
2. Never skip ahead to other questions or topics.
3. Briefly acknowledge what the user just provided, then ask the question in your current task.
4. If the outcome says the answer was rejected, politely explain what was wrong using the reason code and ask again.
5. Keep responses to one or two sentences.
6. Do not repeat information the user has already provided.
7. Never say the onboarding is finished unless your current task says so.
8. Reply in %s.
`

// taskInstructions describe what the reply must ask at each position.
var taskInstructions = map[types.Position]string{
	{State: types.StateAwaitZip}:                                      "Ask for their ZIP code. It must be a 5-digit number.",
	{State: types.StateAwaitName}:                                     "Briefly acknowledge their ZIP code, then ask for their full name.",
	{State: types.StateAwaitEmail}:                                    "Briefly acknowledge their name, then ask for their email address.",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleID}:     "Ask if they want to provide a VIN number OR enter Year, Make, and Body Type manually.",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleVIN}:    "Ask for their vehicle's VIN (17 characters).",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleYear}:   "Ask for the vehicle's year.",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleMake}:   "Acknowledge the year, then ask for the vehicle's make (e.g., Toyota, Ford, Honda).",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleBody}:   "Acknowledge the make, then ask for the vehicle's body type (e.g., Sedan, SUV, Truck, Coupe).",
	{State: types.StateVehicleSubflow, Step: types.StepVehicleUse}:    "Acknowledge the vehicle details, then ask how they use this vehicle. Options: Commuting, Commercial, Farming, or Business.",
	{State: types.StateVehicleSubflow, Step: types.StepBlindSpot}:     "Acknowledge the vehicle use, then ask if the vehicle has blind spot warning equipment (Yes/No).",
	{State: types.StateVehicleSubflow, Step: types.StepCommuteDays}:   "Acknowledge their response, then ask how many days per week they use this vehicle for commuting.",
	{State: types.StateVehicleSubflow, Step: types.StepCommuteMiles}:  "Acknowledge the days, then ask about one-way miles to work or school.",
	{State: types.StateVehicleSubflow, Step: types.StepAnnualMileage}: "Acknowledge their response, then ask ONLY for their estimated annual mileage for this vehicle.",
	{State: types.StateAwaitAddVehicle}:                               "Acknowledge the vehicle information collected, then ask if they want to add another vehicle to their policy.",
	{State: types.StateAwaitLicenseType}:                              "Acknowledge the vehicle information is complete, then ask about their US license type. Options: Foreign, Personal, or Commercial.",
	{State: types.StateAwaitLicenseStatus}:                            "Acknowledge the license type, then ask about their license status: Valid or Suspended.",
	{State: types.StateComplete}:                                      "Thank them warmly and let them know their information has been collected successfully. Keep it brief and positive.",
}

type phraserOptions struct {
	lang                 string
	systemPrompt         string
	systemPromptTemplate string
}

type PhraserOption func(*phraserOptions)

// WithPhraseLang sets the language used by the default system prompt template.
func WithPhraseLang(lang string) PhraserOption {
	return func(o *phraserOptions) {
		o.lang = lang
	}
}

// WithPhraseSystemPrompt replaces the base system prompt. The per-field task
// is still appended.
func WithPhraseSystemPrompt(systemPrompt string) PhraserOption {
	return func(o *phraserOptions) {
		o.systemPrompt = systemPrompt
	}
}

func WithPhraseSystemPromptTemplate(systemPromptTemplate string) PhraserOption {
	return func(o *phraserOptions) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

// ToolBasedPhraser writes replies with a chat model. Diverted turns get the
// fixed calming message so the quote reaches the user unchanged.
type ToolBasedPhraser struct {
	Lang         string
	systemPrompt string
	chatModel    model.BaseChatModel
}

func NewToolBasedPhraser(chatModel model.BaseChatModel, opts ...PhraserOption) *ToolBasedPhraser {
	options := phraserOptions{
		lang:                 "English",
		systemPromptTemplate: DefaultPhraseSystemPromptTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.lang == "" {
		options.lang = "English"
	}
	systemPrompt := options.systemPrompt
	if systemPrompt == "" {
		if strings.Contains(options.systemPromptTemplate, "%s") {
			systemPrompt = fmt.Sprintf(options.systemPromptTemplate, options.lang)
		} else {
			systemPrompt = options.systemPromptTemplate
		}
	}
	return &ToolBasedPhraser{
		Lang:         options.lang,
		systemPrompt: systemPrompt,
		chatModel:    chatModel,
	}
}

func (p *ToolBasedPhraser) Phrase(ctx context.Context, req *types.PhraseRequest) (string, error) {
	if req != nil && req.Outcome != nil && req.Outcome.Diverted() {
		return CalmingMessage(req.Quote), nil
	}
	messages, err := p.buildPhrasePrompt(req)
	if err != nil {
		return "", fmt.Errorf("build phrase prompt: %w", err)
	}
	response, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", errors.New("LLM returned an empty reply")
	}
	return content, nil
}

func (p *ToolBasedPhraser) buildPhrasePrompt(req *types.PhraseRequest) ([]*schema.Message, error) {
	if req == nil {
		return nil, errors.New("phrase request is nil")
	}
	message, err := types.FormatPhraseRequest(req)
	if err != nil {
		return nil, fmt.Errorf("convert to prompt message failed: %w", err)
	}

	task, ok := taskInstructions[req.Session.Position()]
	if !ok {
		task = "Continue the conversation naturally."
	}
	if req.Greeting() {
		task = "Welcome the user to the insurance onboarding, then " + strings.ToLower(task[:1]) + task[1:]
	}
	systemPrompt := fmt.Sprintf("%s\n=== YOUR CURRENT TASK ===\n%s", p.systemPrompt, task)

	messages := make([]*schema.Message, 0, len(req.History)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, m := range req.History {
		if m != nil && m.Role != schema.System {
			messages = append(messages, m)
		}
	}
	messages = append(messages, schema.UserMessage(message))
	return messages, nil
}
