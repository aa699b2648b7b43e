package web

import (
	"FruitBot/internal/ai"
	"FruitBot/internal/config"
	"FruitBot/internal/metrics"
	"FruitBot/internal/service/companion"
	"FruitBot/internal/service/prompt"
	"FruitBot/internal/service/session"
	"FruitBot/internal/service/turns"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingCompleter struct{}

func (failingCompleter) Name() string { return "failing" }

func (failingCompleter) Complete(context.Context, []prompt.Message, ai.Options) (string, error) {
	return "", errors.New("quota exceeded")
}

// blockingCompleter ждёт отмены контекста и возвращает её причину.
type blockingCompleter struct{}

func (blockingCompleter) Name() string { return "blocking" }

func (blockingCompleter) Complete(ctx context.Context, _ []prompt.Message, _ ai.Options) (string, error) {
	<-ctx.Done()
	return "", &ai.CallError{Provider: "blocking", Code: ai.CodeTimeout, Err: ctx.Err()}
}

func newTestServer(t *testing.T, completer ai.Completer) (*Server, *session.Store) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Provider = config.ProviderStub
	return newTestServerWithConfig(t, cfg, completer)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, completer ai.Completer) (*Server, *session.Store) {
	t.Helper()
	cfg.HTTP.BindAddr = "127.0.0.1:0"

	logger := zap.NewNop().Sugar()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := session.NewStore(cfg.MaxTurns, logger)
	m.WatchSessions(store.Len)

	comp := companion.NewCompanion(completer, prompt.New(cfg.AssistantPrompt),
		ai.Options{Temperature: cfg.Temperature, MaxOutputTokens: cfg.MaxOutputTokens}, logger, m)
	return NewServer(cfg, store, comp, m, reg, logger), store
}

func do(t *testing.T, h http.Handler, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) []turns.Turn {
	t.Helper()
	var snap snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap.Messages
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}), RequestIDMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Empty(t, RequestID(context.Background()))
}

func TestIndexStartsSession(t *testing.T) {
	s, store := newTestServer(t, ai.NewStubClient())
	rec := do(t, s.Handler(), http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>FruitBot")
	assert.Contains(t, rec.Body.String(), `action="/chat"`)

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 1, store.Len())

	// повторный заход с cookie не создаёт новую сессию
	rec = do(t, s.Handler(), http.MethodGet, "/", "", c)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, store.Len())
}

func TestPostMessageRunsTurnCycle(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/messages", `{"text":"apple"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := sessionCookie(t, rec)

	want := []turns.Turn{
		{Speaker: turns.User, Text: "apple"},
		{Speaker: turns.Assistant, Text: "You asked about: apple"},
	}
	assert.Equal(t, want, decodeSnapshot(t, rec))

	rec = do(t, h, http.MethodGet, "/api/messages", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, decodeSnapshot(t, rec))
}

func TestPostMessageKeepsBoundedHistory(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	h := s.Handler()

	var c *http.Cookie
	var rec *httptest.ResponseRecorder
	for i, q := range []string{"durian", "mango", "banana"} {
		rec = do(t, h, http.MethodPost, "/api/messages", `{"text":"`+q+`"}`, c)
		if i == 0 {
			c = sessionCookie(t, rec)
		}
	}

	got := decodeSnapshot(t, rec)
	require.Len(t, got, 4)
	assert.Equal(t, "mango", got[0].Text)
	assert.Equal(t, "You asked about: banana", got[3].Text)
}

func TestPostMessageIgnoresBlankText(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	rec := do(t, s.Handler(), http.MethodPost, "/api/messages", `{"text":"   "}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSnapshot(t, rec))
}

func TestPostMessageRejectsInvalidBody(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	rec := do(t, s.Handler(), http.MethodPost, "/api/messages", `{"text":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestPostMessageShowsCallFailure(t *testing.T) {
	s, _ := newTestServer(t, failingCompleter{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/messages", `{"text":"kiwi"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []turns.Turn{
		{Speaker: turns.User, Text: "kiwi"},
		{Speaker: turns.Assistant, Text: "(call error) quota exceeded"},
	}, decodeSnapshot(t, rec))
}

func TestPostMessageRecordsRequestTimeout(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = config.ProviderStub
	cfg.HTTP.RequestTimeout = 50 * time.Millisecond
	s, _ := newTestServerWithConfig(t, cfg, blockingCompleter{})

	start := time.Now()
	rec := do(t, s.Handler(), http.MethodPost, "/api/messages", `{"text":"kiwi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, []turns.Turn{
		{Speaker: turns.User, Text: "kiwi"},
		{Speaker: turns.Assistant, Text: "(call error) blocking: timeout: context deadline exceeded"},
	}, decodeSnapshot(t, rec))
}

func TestPostMessageRecordsUpstreamTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer upstream.Close()

	cfg := config.Defaults()
	cfg.Provider = config.ProviderOpenAI
	cfg.HTTP.RequestTimeout = 50 * time.Millisecond
	s, _ := newTestServerWithConfig(t, cfg, ai.NewOpenAIClient("sk-test", "gpt-4o-mini", upstream.URL+"/"))

	rec := do(t, s.Handler(), http.MethodPost, "/api/messages", `{"text":"kiwi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeSnapshot(t, rec)
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[1].Text, "(call error) openai: timeout: "), got[1].Text)
	assert.Contains(t, got[1].Text, "context deadline exceeded")
}

func TestDeleteMessagesResets(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/messages", `{"text":"apple"}`, nil)
	c := sessionCookie(t, rec)

	rec = do(t, h, http.MethodDelete, "/api/messages", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSnapshot(t, rec))
}

func TestSessionsAreIsolatedByCookie(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	h := s.Handler()

	a := sessionCookie(t, do(t, h, http.MethodPost, "/api/messages", `{"text":"apple"}`, nil))
	b := sessionCookie(t, do(t, h, http.MethodPost, "/api/messages", `{"text":"pear"}`, nil))
	require.NotEqual(t, a.Value, b.Value)

	got := decodeSnapshot(t, do(t, h, http.MethodGet, "/api/messages", "", a))
	require.Len(t, got, 2)
	assert.Equal(t, "apple", got[0].Text)

	got = decodeSnapshot(t, do(t, h, http.MethodGet, "/api/messages", "", b))
	require.Len(t, got, 2)
	assert.Equal(t, "pear", got[0].Text)
}

func TestChatFormRedirectsAndRenders(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(url.Values{"text": {"<b>plum</b>"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c := sessionCookie(t, rec)

	rec = do(t, h, http.MethodGet, "/", "", c)
	body := rec.Body.String()
	assert.Contains(t, body, `class="bubble user"`)
	assert.Contains(t, body, "&lt;b&gt;plum&lt;/b&gt;")
	assert.NotContains(t, body, "<b>plum</b>")

	req = httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, decodeSnapshot(t, do(t, h, http.MethodGet, "/api/messages", "", c)))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	h := s.Handler()
	do(t, h, http.MethodPost, "/api/messages", `{"text":"apple"}`, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `fruitbot_completions_total{outcome="success",provider="stub"} 1`)
	assert.Contains(t, body, `http_requests_total{method="POST",path="/api/messages",status="200"} 1`)
	assert.Contains(t, body, "fruitbot_sessions_active 1")
}

func TestWebSocketRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var cookieSet bool
	for _, c := range resp.Cookies() {
		cookieSet = cookieSet || c.Name == SessionCookie
	}
	assert.True(t, cookieSet, "new websocket session must get a cookie")

	read := func() snapshot {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var snap snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		return snap
	}

	assert.Empty(t, read().Messages)

	require.NoError(t, conn.WriteJSON(submitRequest{Text: "apple"}))
	snap := read()
	assert.Equal(t, []turns.Turn{
		{Speaker: turns.User, Text: "apple"},
		{Speaker: turns.Assistant, Text: "You asked about: apple"},
	}, snap.Messages)

	require.NoError(t, conn.WriteJSON(submitRequest{Text: " "}))
	assert.Len(t, read().Messages, 2)

	require.NoError(t, conn.WriteJSON(submitRequest{Reset: true}))
	assert.Empty(t, read().Messages)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestServer(t, ai.NewStubClient())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(context.Background()))
	// повторный Stop ничего не делает
	assert.NoError(t, s.Stop(context.Background()))
}
