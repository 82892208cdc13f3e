package triagelog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/siraya-health/navigator/internal/shared/errors"
	"github.com/siraya-health/navigator/internal/shared/types"
	"github.com/siraya-health/navigator/internal/triage"
)

// Handler provides HTTP handlers for the triage log
type Handler struct {
	repo Repository
}

// NewHandler creates a new triage log handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the triage log routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/complete", h.Complete)
	r.Get("/recent", h.Recent)
	r.Get("/stats", h.GetStats)

	return r
}

// CompleteRequest reports a finished triage from the conversation layer
type CompleteRequest struct {
	SessionID      string         `json:"session_id"`
	Comune         string         `json:"comune"`
	Path           string         `json:"path"`
	Branch         string         `json:"branch"`
	Urgency        int            `json:"urgency"`
	Disposition    string         `json:"disposition"`
	EmergencyColor string         `json:"emergency_color"`
	RedFlags       []string       `json:"red_flags"`
	Detail         map[string]any `json:"detail"`
}

// Complete appends a completed triage to the log
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if req.SessionID == "" {
		details["session_id"] = "session_id is required"
	}
	if req.Comune == "" {
		details["comune"] = "comune is required"
	}
	if req.Path == "" {
		details["path"] = "path is required"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	sessionID, err := types.ParseID(req.SessionID)
	if err != nil {
		writeError(w, errors.BadRequest("invalid session ID"))
		return
	}

	color := triage.Color(req.EmergencyColor)
	if color == "" {
		color = triage.ColorGreen
	}

	entry := &Entry{
		ID:             types.NewID(),
		SessionID:      sessionID,
		LoggedAt:       time.Now().UTC(),
		Comune:         req.Comune,
		Path:           triage.Path(req.Path),
		Branch:         triage.Branch(req.Branch),
		Urgency:        req.Urgency,
		Disposition:    req.Disposition,
		EmergencyColor: color,
		RedFlags:       req.RedFlags,
		Detail:         req.Detail,
	}
	if entry.RedFlags == nil {
		entry.RedFlags = []string{}
	}

	if err := h.repo.Append(r.Context(), entry); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// Recent returns the latest completed triages
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	entries, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": len(entries),
	})
}

// GetStats returns the KPI summary
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
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
