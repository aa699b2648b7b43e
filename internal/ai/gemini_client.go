package ai

import (
	"FruitBot/internal/service/prompt"
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient отправляет диалог в Gemini API (google.golang.org/genai).
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient создаёт клиента Gemini API по ключу.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) Complete(ctx context.Context, messages []prompt.Message, opts Options) (string, error) {
	system, contents, err := geminiContents(messages)
	if err != nil {
		return "", &CallError{Provider: c.Name(), Code: CodeInvalidRequest, Err: err}
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(opts.Temperature)),
		SystemInstruction: system,
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		status := 0
		var apiErr genai.APIError
		var apiErrPtr *genai.APIError
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Code
		case errors.As(err, &apiErrPtr):
			status = apiErrPtr.Code
		}
		return "", classify(c.Name(), status, err)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", classify(c.Name(), 0, ErrEmptyResponse)
	}
	return out, nil
}

// geminiContents: системные сообщения уходят в SystemInstruction,
// ассистент в Gemini называется model.
func geminiContents(messages []prompt.Message) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case prompt.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
		case prompt.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case prompt.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("unsupported role %q", m.Role)
		}
	}
	return system, contents, nil
}
