package ai

import (
	"FruitBot/internal/service/prompt"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAIClient отправляет диалог в OpenAI через Responses API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient создаёт клиента. Повторы SDK отключены: ошибка сразу уходит в диалог.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAIClient{client: &client, model: model}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, messages []prompt.Message, opts Options) (string, error) {
	items, err := openAIInput(messages)
	if err != nil {
		return "", &CallError{Provider: c.Name(), Code: CodeInvalidRequest, Err: err}
	}

	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	}
	params.Temperature = openai.Float(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(opts.MaxOutputTokens))
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", classify(c.Name(), status, err)
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", classify(c.Name(), 0, ErrEmptyResponse)
	}
	return out, nil
}

// openAIInput переводит сообщения в easy input messages с ролями system/user/assistant.
func openAIInput(messages []prompt.Message) (responses.ResponseInputParam, error) {
	items := make(responses.ResponseInputParam, 0, len(messages))
	for _, m := range messages {
		var role responses.EasyInputMessageRole
		switch m.Role {
		case prompt.RoleSystem:
			role = responses.EasyInputMessageRoleSystem
		case prompt.RoleUser:
			role = responses.EasyInputMessageRoleUser
		case prompt.RoleAssistant:
			role = responses.EasyInputMessageRoleAssistant
		default:
			return nil, fmt.Errorf("unsupported role %q", m.Role)
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}
	return items, nil
}
