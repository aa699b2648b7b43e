package app

import (
	"FruitBot/internal/config"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stubConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Provider = config.ProviderStub
	return cfg
}

func TestNewWiresStubProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(context.Background(), stubConfig(), reg, zap.NewNop().Sugar())
	require.NoError(t, err)

	assert.Equal(t, "stub", a.Completer.Name())

	sess := a.Sessions.Create()
	reply, ok := a.Companion.Reply(context.Background(), sess, "apple")
	require.True(t, ok)
	assert.Equal(t, "You asked about: apple", reply.Text)
	assert.Len(t, sess.Messages(), 2)

	n, err := testutil.GatherAndCount(reg, "fruitbot_sessions_active", "fruitbot_completions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewWithoutRegistry(t *testing.T) {
	a, err := New(context.Background(), stubConfig(), nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, a.Metrics)

	_, ok := a.Companion.Reply(context.Background(), a.Sessions.Create(), "pear")
	assert.True(t, ok)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = config.ProviderOpenAI
	cfg.OpenAI.APIKey = ""

	_, err := New(context.Background(), cfg, nil, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), stubConfig(), nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunSweeper(ctx)
		close(done)
	}()
	cancel()
	<-done
}
