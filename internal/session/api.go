package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/siraya-health/navigator/internal/shared/errors"
	"github.com/siraya-health/navigator/internal/shared/types"
)

// Handler provides HTTP handlers for the session module
type Handler struct {
	svc           *Service
	defaultMaxAge time.Duration
}

// NewHandler creates a new session handler
func NewHandler(svc *Service, defaultMaxAge time.Duration) *Handler {
	return &Handler{svc: svc, defaultMaxAge: defaultMaxAge}
}

// Routes registers the session routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/active", h.ListActive)
		r.Post("/cleanup", h.Cleanup)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/", h.ReplaceSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/messages", h.PostMessage)
		})
	})

	return r
}

// CreateSession starts a new conversation session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// GetSession returns a session snapshot
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid session ID"))
		return
	}

	sess, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// ReplaceSession overwrites a session with a caller-supplied snapshot,
// used by frontend instances to sync their local copy
func (h *Handler) ReplaceSession(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid session ID"))
		return
	}

	sess := &Session{}
	if err := json.NewDecoder(r.Body).Decode(sess); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	sess.ID = id

	if err := h.svc.Replace(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession removes a session
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid session ID"))
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PostMessageRequest is the body of a conversation turn
type PostMessageRequest struct {
	Text string `json:"text"`
}

// PostMessage handles one conversational turn
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid session ID"))
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	result, err := h.svc.HandleMessage(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListActive lists the sessions still in progress
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  sessions,
		"total": len(sessions),
	})
}

// CleanupRequest controls the session age cutoff
type CleanupRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// Cleanup removes sessions older than the requested age
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	req := CleanupRequest{}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	maxAge := h.defaultMaxAge
	if req.MaxAgeHours > 0 {
		maxAge = time.Duration(req.MaxAgeHours) * time.Hour
	}

	removed, err := h.svc.Cleanup(r.Context(), maxAge)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"removed":       removed,
		"max_age_hours": int(maxAge.Hours()),
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
