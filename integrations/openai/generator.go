package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

const DefaultModel = "gpt-4o-mini"

// KeyProvider supplies the API key at call time so key rotation through
// settings takes effect without a restart.
type KeyProvider func(ctx context.Context) (string, error)

// Generator implements autoreply.ReplyGenerator on the OpenAI chat API.
type Generator struct {
	model        string
	systemPrompt string
	keyProvider  KeyProvider
}

func NewGenerator(model, systemPrompt string, keyProvider KeyProvider) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		model:        model,
		systemPrompt: systemPrompt,
		keyProvider:  keyProvider,
	}
}

// Generate asks the model for a reply to an incoming chat message. The
// rule prompt takes precedence over the global system prompt.
func (g *Generator) Generate(ctx context.Context, prompt, message string) (string, error) {
	apiKey, err := g.keyProvider(ctx)
	if err != nil {
		return "", err
	}
	if apiKey == "" {
		return "", fmt.Errorf("no AI API key configured")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	var messages []openai.ChatCompletionMessageParamUnion
	system := prompt
	if system == "" {
		system = g.systemPrompt
	}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(message))

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	reply := completion.Choices[0].Message.Content
	logrus.WithFields(logrus.Fields{
		"model":         g.model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	}).Debug("[OPENAI] Reply generated")

	return reply, nil
}
