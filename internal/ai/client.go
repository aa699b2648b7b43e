package ai

import (
	"FruitBot/internal/service/prompt"
	"context"
)

// Options параметры сэмплирования, одинаковые для каждого вызова.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Completer интерфейс для взаимодействия с моделью. Все реализации должны быть взаимозаменяемыми.
// Ошибки возвращаются как *CallError.
type Completer interface {
	Complete(ctx context.Context, messages []prompt.Message, opts Options) (string, error)
	Name() string
}
