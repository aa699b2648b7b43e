package web

import (
	"FruitBot/internal/config"
	"FruitBot/internal/metrics"
	"FruitBot/internal/service/companion"
	"FruitBot/internal/service/session"
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server веб-интерфейс чата: страница, JSON API и WebSocket поверх одного цикла Companion.
type Server struct {
	cfg       config.HTTPConfig
	ui        config.UIConfig
	store     *session.Store
	companion *companion.Companion
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *zap.SugaredLogger

	page     *template.Template
	upgrader websocket.Upgrader
	handler  http.Handler
	srv      *http.Server
	running  atomic.Bool

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewServer(cfg *config.Config, store *session.Store, comp *companion.Companion, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) *Server {
	httpCfg := cfg.HTTP
	if httpCfg.BindAddr == "" {
		httpCfg.BindAddr = "127.0.0.1:8501"
	}
	if httpCfg.RequestTimeout <= 0 {
		httpCfg.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		cfg:       httpCfg,
		ui:        cfg.UI,
		store:     store,
		companion: comp,
		metrics:   m,
		gatherer:  gatherer,
		logger:    logger,
		page:      template.Must(template.ParseFS(templates, "templates/index.html")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /chat", s.handleChatForm)
	mux.HandleFunc("POST /reset", s.handleResetForm)
	mux.HandleFunc("GET /api/messages", s.handleGetMessages)
	mux.HandleFunc("POST /api/messages", s.handlePostMessage)
	mux.HandleFunc("DELETE /api/messages", s.handleDeleteMessages)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.handler = Chain(mux,
		RequestIDMiddleware,
		LoggingMiddleware(logger, m, []string{"/healthz", "/metrics"}),
	)

	s.srv = &http.Server{
		Addr:              httpCfg.BindAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// WriteTimeout покрывает и вызов модели, поэтому с запасом к RequestTimeout.
		WriteTimeout: httpCfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return s.baseCtx },
	}
	return s
}

// Handler возвращает корневой обработчик (для тестов через httptest).
func (s *Server) Handler() http.Handler { return s.handler }

// Start запускает сервер в отдельной горутине и сразу возвращается.
// Отмена ctx останавливает сервер.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	go func() {
		s.logger.Infow("FruitBot UI listening", "addr", "http://"+ln.Addr().String()+"/")
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("HTTP server stopped with error", "error", err)
		} else {
			s.logger.Infow("HTTP server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Stop инициирует graceful shutdown. WebSocket-соединения закрываются после остановки HTTP.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	defer s.cancelBase()
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("http server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.cfg.BindAddr }
