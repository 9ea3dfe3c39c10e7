// Package server exposes sessions over HTTP, server-sent events and
// websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tatianab/werewolf/internal/archive"
	"github.com/tatianab/werewolf/internal/models"
	"github.com/tatianab/werewolf/internal/session"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Archive stores finished games. It may be nil.
type Archive interface {
	SaveGame(ctx context.Context, review *models.Review, finishedAt time.Time) error
	LoadGame(ctx context.Context, id string) (*models.Review, error)
	ListGames(ctx context.Context, limit int) ([]archive.Summary, error)
}

type Server struct {
	sessions *session.Registry
	archive  Archive
	log      zerolog.Logger
	mux      *http.ServeMux
}

func New(sessions *session.Registry, store Archive, log zerolog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		archive:  store,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /games", s.handleCreate)
	s.mux.HandleFunc("DELETE /games/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /games/{id}/stream", s.handleStream)
	s.mux.HandleFunc("GET /games/{id}/ws", s.handleWS)
	s.mux.HandleFunc("POST /games/{id}/respond", s.handleRespond)
	s.mux.HandleFunc("POST /games/{id}/reset", s.handleReset)
	s.mux.HandleFunc("POST /games/{id}/end", s.handleEnd)
	s.mux.HandleFunc("GET /games/{id}/review", s.handleReview)
	s.mux.HandleFunc("GET /archive", s.handleArchiveList)
	s.mux.HandleFunc("GET /archive/{id}", s.handleArchiveGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
}

type gameResponse struct {
	GameID   string      `json:"game_id"`
	UserRole models.Role `json:"user_role"`
	Status   string      `json:"status,omitempty"`
}

type reviewResponse struct {
	GameID   string         `json:"game_id"`
	UserRole models.Role    `json:"user_role"`
	Winner   models.Winner  `json:"winner,omitempty"`
	Days     int            `json:"days"`
	Seats    []models.Seat  `json:"seats"`
	Events   []models.Entry `json:"events"`
}

func newReviewResponse(r *models.Review) reviewResponse {
	return reviewResponse{
		GameID:   r.ID,
		UserRole: r.HumanRole,
		Winner:   r.Winner,
		Days:     r.Days,
		Seats:    r.Seats,
		Events:   r.Entries,
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, gameResponse{GameID: sess.ID, UserRole: sess.HumanRole()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

// handleStream runs the game and writes one event-stream frame per notice.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	err := sess.Stream(r.Context(), func(n models.Notice) error {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if errors.Is(err, session.ErrStreaming) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("event stream stopped")
	}
	s.archiveFinished(sess)
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWS streams notices over a websocket and reads responses from it.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer c.Close(websocket.StatusInternalError, "unexpected exit")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// reader
	go func() {
		defer cancel()
		for {
			var resp models.Response
			if err := wsjson.Read(ctx, c, &resp); err != nil {
				return
			}
			if err := sess.Respond(resp); err != nil {
				_ = wsjson.Write(ctx, c, wsError{Type: "error", Error: err.Error()})
			}
		}
	}()

	err = sess.Stream(ctx, func(n models.Notice) error {
		return wsjson.Write(ctx, c, n)
	})
	switch {
	case errors.Is(err, session.ErrStreaming):
		_ = c.Close(websocket.StatusPolicyViolation, err.Error())
		return
	case err != nil:
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("websocket stream stopped")
	}
	s.archiveFinished(sess)
	_ = c.Close(websocket.StatusNormalClosure, "game over")
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var resp models.Response
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode response: %w", err))
		return
	}
	err := sess.Respond(resp)
	switch {
	case errors.Is(err, session.ErrNoPendingInput):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		writeJSON(w, http.StatusOK, gameResponse{GameID: sess.ID, UserRole: sess.HumanRole(), Status: "ok"})
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, gameResponse{GameID: sess.ID, UserRole: sess.HumanRole(), Status: "reset"})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.End()
	writeJSON(w, http.StatusOK, gameResponse{GameID: sess.ID, UserRole: sess.HumanRole(), Status: "ended"})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newReviewResponse(sess.Review()))
}

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, errors.New("archive disabled"))
		return
	}
	games, err := s.archive.ListGames(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if games == nil {
		games = []archive.Summary{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, errors.New("archive disabled"))
		return
	}
	review, err := s.archive.LoadGame(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, newReviewResponse(review))
	}
}

func (s *Server) archiveFinished(sess *session.Session) {
	if s.archive == nil || !sess.Finished() {
		return
	}
	review := sess.Review()
	if err := s.archive.SaveGame(context.Background(), review, time.Now()); err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("archive game")
		return
	}
	s.log.Info().Str("session", sess.ID).Str("winner", string(review.Winner)).Msg("game archived")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
