// Package app собирает зависимости FruitBot, общие для веб- и терминального хоста.
package app

import (
	"FruitBot/internal/ai"
	"FruitBot/internal/config"
	"FruitBot/internal/metrics"
	"FruitBot/internal/service/companion"
	"FruitBot/internal/service/prompt"
	"FruitBot/internal/service/session"
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type App struct {
	Config    *config.Config
	Completer ai.Completer
	Companion *companion.Companion
	Sessions  *session.Store
	Metrics   *metrics.Metrics
}

// New проверяет конфигурацию, выбирает провайдера и связывает сервисы.
// reg может быть nil: тогда метрики не собираются.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.SugaredLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	completer, err := ai.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	store := session.NewStore(cfg.MaxTurns, logger)
	m.WatchSessions(store.Len)

	opts := ai.Options{Temperature: cfg.Temperature, MaxOutputTokens: cfg.MaxOutputTokens}
	comp := companion.NewCompanion(completer, prompt.New(cfg.AssistantPrompt), opts, logger, m)

	logger.Infow("FruitBot configured",
		"provider", completer.Name(),
		"maxTurns", cfg.MaxTurns,
		"temperature", cfg.Temperature,
		"maxOutputTokens", cfg.MaxOutputTokens,
	)

	return &App{
		Config:    cfg,
		Completer: completer,
		Companion: comp,
		Sessions:  store,
		Metrics:   m,
	}, nil
}

// RunSweeper удаляет простаивающие сессии до отмены ctx.
func (a *App) RunSweeper(ctx context.Context) {
	a.Sessions.Run(ctx, a.Config.Session.SweepInterval, a.Config.Session.IdleTTL)
}
