package main

import (
	"FruitBot/internal/app"
	"FruitBot/internal/config"
	"FruitBot/internal/logger"
	"FruitBot/internal/web"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Веб-интерфейс FruitBot: страница чата, JSON API и WebSocket.
func main() {
	cfg := config.NewConfig()

	zl := logger.New(cfg.DebugMode)
	sugar := zl.Sugar()
	//сброс буфера логгера
	defer func() {
		_ = zl.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.New(ctx, cfg, reg, sugar)
	if err != nil {
		sugar.Errorw("Failed to start FruitBot", "error", err)
		_ = zl.Sync()
		os.Exit(1)
	}

	sugar.Infow("Starting app",
		"DebugMode", cfg.DebugMode,
		"addr", cfg.HTTP.BindAddr,
	)

	go a.RunSweeper(ctx)

	srv := web.NewServer(cfg, a.Sessions, a.Companion, a.Metrics, reg, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("Failed to start HTTP server", "addr", srv.Addr(), "error", err)
		_ = zl.Sync()
		os.Exit(1)
	}

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		sugar.Warnw("HTTP server stop error", "error", err)
	}
	sugar.Infow("FruitBot stopped")
}
