package web

import (
	"FruitBot/internal/service/session"
	"FruitBot/internal/service/turns"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
)

//go:embed templates/index.html
var templates embed.FS

// SessionCookie имя cookie с ID сессии.
const SessionCookie = "fruitbot_session"

// maxBodyBytes предел тела запроса с репликой.
const maxBodyBytes = 64 << 10

type snapshot struct {
	Messages []turns.Turn `json:"messages"`
}

type submitRequest struct {
	Text  string `json:"text"`
	Reset bool   `json:"reset,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type pageData struct {
	Title       string
	Placeholder string
	Messages    []turns.Turn
}

// lookupSession находит сессию по cookie. Для новой сессии возвращает cookie, который надо выставить.
func (s *Server) lookupSession(r *http.Request) (*session.Session, *http.Cookie) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.store.GetOrCreate(id)
	if !created {
		return sess, nil
	}
	return sess, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, cookie := s.lookupSession(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return sess
}

// reply выполняет цикл с таймаутом на вызов модели.
func (s *Server) reply(ctx context.Context, sess *session.Session, text string) {
	ctx, cancel := context.WithTimeoutCause(ctx, s.cfg.RequestTimeout, errors.New("request timeout"))
	defer cancel()
	s.companion.Reply(ctx, sess, text)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	data := pageData{
		Title:       s.ui.PageTitle,
		Placeholder: s.ui.InputPlaceholder,
		Messages:    sess.Messages(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Errorw("render page failed", "error", err)
	}
}

// handleChatForm обрабатывает форму без JS: цикл, затем redirect на страницу.
func (s *Server) handleChatForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to read form", http.StatusBadRequest)
		return
	}
	sess := s.session(w, r)
	s.reply(r.Context(), sess, r.PostFormValue("text"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	s.session(w, r).Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	writeJSON(w, http.StatusOK, snapshot{Messages: sess.Messages()})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	sess := s.session(w, r)
	s.reply(r.Context(), sess, req.Text)
	writeJSON(w, http.StatusOK, snapshot{Messages: sess.Messages()})
}

func (s *Server) handleDeleteMessages(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Reset()
	writeJSON(w, http.StatusOK, snapshot{Messages: sess.Messages()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
