package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/recommend"
)

type Handler struct {
	svc *recommend.Service
	now func() time.Time
}

func NewHandler(svc *recommend.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// badParam names the query parameter that could not be read.
type badParam string

func (b badParam) Error() string { return "Invalid " + string(b) }

func intParam(q map[string][]string, name string) (int, error) {
	vals := q[name]
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
	if err != nil {
		return 0, badParam(name)
	}
	return n, nil
}

// parseRequest reads a recommendation request from the query string (GET)
// or a JSON body (POST).
func parseRequest(r *http.Request) (models.Request, error) {
	var req models.Request
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, badParam("JSON body")
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Artist = q.Get("artist")
	req.Genre = q.Get("genre")
	req.Decade = q.Get("decade")
	req.SessionID = q.Get("sessionId")

	var err error
	if req.StartYear, err = intParam(q, "startYear"); err != nil {
		return req, err
	}
	if req.EndYear, err = intParam(q, "endYear"); err != nil {
		return req, err
	}
	if req.Count, err = intParam(q, "count"); err != nil {
		return req, err
	}
	return req, nil
}

// Recommendations answers synchronously. Pipeline problems are reported in
// the message with a 200; only unreadable input is a 400.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Recommend(r.Context(), req, nil))
}

// Stream runs the same pipeline and reports each stage as a server-sent
// event; the last event carries the result.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, err := setupSSE(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	send := func(v any) { sendEvent(w, flusher, v) }

	h.svc.Recommend(r.Context(), req, func(p recommend.Progress) {
		if r.Context().Err() != nil {
			return
		}
		send(p)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := h.svc.Sessions().New()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.ResetSession(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("session", id).Msg("session reset failed")
		writeError(w, http.StatusInternalServerError, "session reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
