package main

import (
	"FruitBot/internal/app"
	"FruitBot/internal/config"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStubApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Defaults()
	cfg.Provider = config.ProviderStub
	a, err := app.New(context.Background(), cfg, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	return a
}

func TestReplConversation(t *testing.T) {
	a := newStubApp(t)
	in := strings.NewReader("apple\n   \n/history\n/reset\n/history\n/quit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), a, in, &out, zap.NewNop().Sugar()))

	text := out.String()
	assert.Contains(t, text, "FruitBot: You asked about: apple")
	assert.Contains(t, text, "You: apple\nFruitBot: You asked about: apple\n")
	assert.Contains(t, text, "History cleared.")
	assert.Contains(t, text, "(empty)")
	assert.NotContains(t, text, "never read")
	assert.Equal(t, 1, strings.Count(text, "FruitBot: You asked about: apple\n\n"), "blank line must not start a cycle")
}

func TestReplStopsAtEOF(t *testing.T) {
	a := newStubApp(t)
	var out bytes.Buffer
	assert.NoError(t, repl(context.Background(), a, strings.NewReader("pear"), &out, zap.NewNop().Sugar()))
	assert.Contains(t, out.String(), "You asked about: pear")
}

func TestReplReturnsOnCancelWhileWaitingForInput(t *testing.T) {
	a := newStubApp(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- repl(ctx, a, pr, io.Discard, zap.NewNop().Sugar())
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("repl did not return after context cancel")
	}
}

func TestReplAcceptsLongLine(t *testing.T) {
	a := newStubApp(t)
	long := strings.Repeat("a", 100<<10)
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), a, strings.NewReader(long+"\n/history\n"), &out, zap.NewNop().Sugar()))
	assert.Contains(t, out.String(), "FruitBot: You asked about: "+long)
	assert.Contains(t, out.String(), "You: "+long)
}
