// Package api exposes the player service over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/p-n-ai/pai-exam/internal/analytics"
	"github.com/p-n-ai/pai-exam/internal/exam"
	"github.com/p-n-ai/pai-exam/internal/player"
	"github.com/p-n-ai/pai-exam/internal/session"
)

// ExamLister lists the exams a learner can start.
type ExamLister interface {
	AllExams() []exam.Exam
}

// ReadyCheck reports whether a backing service is reachable.
type ReadyCheck func(ctx context.Context) error

// Handler serves the exam API.
type Handler struct {
	player *player.Service
	exams  ExamLister
	ready  map[string]ReadyCheck
}

// NewHandler creates a handler. ready checks are run by /readyz, keyed by
// the name reported on failure.
func NewHandler(p *player.Service, exams ExamLister, ready map[string]ReadyCheck) *Handler {
	return &Handler{player: p, exams: exams, ready: ready}
}

// Routes returns the router for all endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/exams", h.listExams)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.startSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.endSession)
			r.Post("/answer", h.submitAnswer)
			r.Post("/next", h.step((*player.Service).Next))
			r.Post("/previous", h.step((*player.Service).Previous))
			r.Post("/skip", h.step((*player.Service).Skip))
			r.Post("/retry", h.step((*player.Service).Retry))
			r.Post("/jump", h.jump)
			r.Post("/check", h.checkBlanks)
			r.Post("/view-source", h.viewSource)
			r.Get("/analytics", h.sessionAnalytics)
			r.Get("/report.xlsx", h.report)
			r.Get("/ws", h.play)
		})
	})
	return r
}

type examSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mode      exam.Mode `json:"mode"`
	Exercises int       `json:"exercises"`
}

type startRequest struct {
	ExamID string `json:"exam_id"`
}

type answerRequest struct {
	Value   string `json:"value"`
	Correct *bool  `json:"correct,omitempty"`
}

type jumpRequest struct {
	Index *int `json:"index"`
}

type checkRequest struct {
	Values []string `json:"values"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.ready {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"check":  name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) listExams(w http.ResponseWriter, r *http.Request) {
	all := h.exams.AllExams()
	out := make([]examSummary, 0, len(all))
	for _, e := range all {
		out = append(out, examSummary{ID: e.ID, Name: e.Name, Mode: e.Mode, Exercises: e.Len()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ExamID == "" {
		writeError(w, http.StatusBadRequest, errors.New("exam_id is required"))
		return
	}
	v, err := h.player.Start(r.Context(), req.ExamID)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.player.Get(r.Context(), sessionID(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.player.End(r.Context(), sessionID(r)); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := h.player.Submit(r.Context(), sessionID(r), req.Value, req.Correct)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) step(op func(*player.Service, context.Context, string) (player.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := op(h.player, r.Context(), sessionID(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handler) jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, errors.New("index is required"))
		return
	}
	v, err := h.player.JumpTo(r.Context(), sessionID(r), *req.Index)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) checkBlanks(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.player.CheckBlanks(r.Context(), sessionID(r), req.Values)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) viewSource(w http.ResponseWriter, r *http.Request) {
	if err := h.player.ViewSource(r.Context(), sessionID(r)); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) sessionAnalytics(w http.ResponseWriter, r *http.Request) {
	_, snap, err := h.player.Analytics(r.Context(), sessionID(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	e, snap, err := h.player.Analytics(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, e.ID, id))
	if err := analytics.WriteXLSX(w, e, snap); err != nil {
		slog.Error("failed to write report", "session_id", id, "error", err)
	}
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, exam.ErrExamNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionComplete), errors.Is(err, player.ErrNotFillIn):
		return http.StatusConflict
	case errors.Is(err, session.ErrIndexOutOfRange), errors.Is(err, player.ErrInvalidPlacement):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, code, err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
