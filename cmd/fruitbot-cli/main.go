package main

import (
	"FruitBot/internal/app"
	"FruitBot/internal/config"
	"FruitBot/internal/logger"
	"FruitBot/internal/service/turns"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

const (
	cmdReset   = "/reset"
	cmdHistory = "/history"
	cmdQuit    = "/quit"
)

// Терминальный FruitBot: один диалог в рамках процесса.
func main() {
	cfg := config.NewConfig()

	zl := logger.New(cfg.DebugMode)
	sugar := zl.Sugar()
	defer func() {
		_ = zl.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// метрики в терминале не нужны
	a, err := app.New(ctx, cfg, nil, sugar)
	if err != nil {
		sugar.Errorw("Failed to start FruitBot", "error", err)
		_ = zl.Sync()
		os.Exit(1)
	}

	if err := repl(ctx, a, os.Stdin, os.Stdout, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Terminal session failed", "error", err)
	}
}

// repl читает реплики построчно и печатает ответ после каждого цикла.
func repl(ctx context.Context, a *app.App, in io.Reader, out io.Writer, logger *zap.SugaredLogger) error {
	sess := a.Sessions.Create()
	logger.Debugw("Terminal session started", "session", sess.ID)

	fmt.Fprintf(out, "%s (%s to clear, %s to exit)\n", a.Config.UI.PageTitle, cmdReset, cmdQuit)

	lines, errc := readLines(ctx, in)
	for {
		fmt.Fprintf(out, "%s\n> ", a.Config.UI.InputPlaceholder)

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return <-errc
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case cmdQuit:
			return nil
		case cmdReset:
			sess.Reset()
			fmt.Fprintln(out, "History cleared.")
			continue
		case cmdHistory:
			printTranscript(out, sess.Messages())
			continue
		}

		reply, ok := a.Companion.Reply(ctx, sess, line)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "FruitBot: %s\n\n", reply.Text)
	}
}

// maxLineBytes предел длины одной реплики из stdin.
const maxLineBytes = 1 << 20

// readLines читает in в отдельной горутине, чтобы ожидание ввода не блокировало отмену ctx.
// После закрытия lines в errc лежит ошибка чтения (nil на EOF), если ctx не отменён.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

func printTranscript(out io.Writer, history []turns.Turn) {
	if len(history) == 0 {
		fmt.Fprintln(out, "(empty)")
		return
	}
	for _, t := range history {
		name := "You"
		if t.Speaker == turns.Assistant {
			name = "FruitBot"
		}
		fmt.Fprintf(out, "%s: %s\n", name, t.Text)
	}
}
