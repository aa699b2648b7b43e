package ai

import (
	"FruitBot/internal/service/prompt"
	"context"
	"errors"
)

// StubClient заглушка, которая не делает реальных запросов: повторяет последнюю реплику пользователя.
type StubClient struct{}

func NewStubClient() *StubClient { return &StubClient{} }

func (c *StubClient) Name() string { return "stub" }

func (c *StubClient) Complete(ctx context.Context, messages []prompt.Message, _ Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify(c.Name(), 0, err)
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == prompt.RoleUser {
			return "You asked about: " + messages[i].Content, nil
		}
	}
	return "", &CallError{Provider: c.Name(), Code: CodeInvalidRequest, Err: errors.New("no user message")}
}
