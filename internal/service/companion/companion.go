package companion

import (
	"FruitBot/internal/ai"
	"FruitBot/internal/metrics"
	"FruitBot/internal/service/prompt"
	"FruitBot/internal/service/turns"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CallErrorPrefix предваряет текст ошибки вызова, записанный как реплика ассистента.
const CallErrorPrefix = "(call error)"

// Conversation диалог одной сессии, которым управляет хост (веб, терминал).
type Conversation interface {
	// Exclusive выполняет fn, не допуская параллельных циклов в этом диалоге.
	Exclusive(fn func())
	AddUser(text string)
	AddAssistant(text string)
	Messages() []turns.Turn
}

// Outcome результат вызова модели: текст или причина ошибки.
type Outcome struct {
	Text string
	Err  error
}

// Display текст реплики ассистента. Ошибка форматируется только здесь.
func (o Outcome) Display() string {
	if o.Err != nil {
		return CallErrorPrefix + " " + o.Err.Error()
	}
	return o.Text
}

type Companion struct {
	completer ai.Completer
	assembler *prompt.Assembler
	opts      ai.Options
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics
}

// NewCompanion создаёт сервис оркестрации. m может быть nil.
func NewCompanion(completer ai.Completer, assembler *prompt.Assembler, opts ai.Options, logger *zap.SugaredLogger, m *metrics.Metrics) *Companion {
	return &Companion{completer: completer, assembler: assembler, opts: opts, logger: logger, metrics: m}
}

// Reply выполняет один цикл: реплика пользователя → запрос к модели → реплика ассистента.
// Пустой после trim текст игнорируется: ничего не записывается, модель не вызывается (ok=false).
// Ошибки вызова не возвращаются, а записываются в диалог как ответ ассистента.
func (c *Companion) Reply(ctx context.Context, conv Conversation, text string) (reply turns.Turn, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return turns.Turn{}, false
	}

	conv.Exclusive(func() {
		conv.AddUser(text)
		out := c.complete(ctx, c.assembler.Assemble(conv.Messages()))
		reply = turns.Turn{Speaker: turns.Assistant, Text: out.Display()}
		conv.AddAssistant(reply.Text)
	})
	return reply, true
}

func (c *Companion) complete(ctx context.Context, msgs []prompt.Message) (out Outcome) {
	provider := c.completer.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("%s: panic: %v", provider, r)}
		}
		dur := time.Since(start)
		c.metrics.ObserveCompletion(provider, dur, out.Err)
		if out.Err != nil {
			c.logger.Errorw("Completion failed", "provider", provider, "messages", len(msgs), "duration", dur.String(), "code", ai.Code(out.Err), "error", out.Err)
		} else {
			c.logger.Infow("Completion received", "provider", provider, "messages", len(msgs), "duration", dur.String())
		}
	}()

	c.logger.Debugw("Completion request", "provider", provider, "messages", len(msgs))
	text, err := c.completer.Complete(ctx, msgs, c.opts)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Text: text}
}
