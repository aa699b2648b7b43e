package web

import (
	"FruitBot/internal/service/turns"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsWriteTimeout сколько ждём записи кадра клиенту.
const wsWriteTimeout = 10 * time.Second

// handleWebSocket: клиент шлёт {"text": "..."} или {"reset": true},
// в ответ после каждого цикла получает полный снимок диалога (и один сразу после подключения).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, cookie := s.lookupSession(r)
	var header http.Header
	if cookie != nil {
		// Upgrade пишет заголовки сам, w.Header() не используется
		header = http.Header{"Set-Cookie": {cookie.String()}}
	}

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	s.logger.Infow("websocket connected", "session", sess.ID, "remote", r.RemoteAddr)
	defer s.logger.Infow("websocket disconnected", "session", sess.ID)

	conn.SetReadLimit(maxBodyBytes)
	if err := s.writeSnapshot(conn, sess.Messages()); err != nil {
		return
	}

	for {
		var req submitRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warnw("websocket read error", "session", sess.ID, "error", err)
			}
			return
		}

		if req.Reset {
			sess.Reset()
		} else {
			s.reply(ctx, sess, req.Text)
		}

		if err := s.writeSnapshot(conn, sess.Messages()); err != nil {
			s.logger.Warnw("websocket write error", "session", sess.ID, "error", err)
			return
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn, msgs []turns.Turn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snapshot{Messages: msgs})
}
