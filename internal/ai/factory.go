package ai

import (
	"FruitBot/internal/config"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// New выбирает реализацию по cfg.Provider. Конфигурация должна быть уже провалидирована.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c := NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		logger.Infow("Completion provider selected", "provider", c.Name(), "model", c.model)
		return c, nil
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		logger.Infow("Completion provider selected", "provider", c.Name(), "model", c.model)
		return c, nil
	case config.ProviderStub:
		logger.Warnw("Completion provider is a stub, no real model calls will be made")
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
