package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/urbanbot/server/internal/agent/format"
	errx "github.com/urbanbot/server/internal/core/error"
)

type askRequest struct {
	Question string `json:"question"`
}

type reportResponse struct {
	Domain    string `json:"domain"`
	Title     string `json:"title"`
	Total     int64  `json:"total"`
	Breakdown any    `json:"breakdown"`
	Markdown  string `json:"markdown"`
}

// CreateSession starts a conversation under a fresh session id.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	state, err := h.conversations.Start(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"entries":    state.Entries,
	})
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	state, err := h.conversations.History(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, state)
}

// PostMessage asks one question and returns the assistant entry.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	entry, err := h.conversations.Ask(r.Context(), id, req.Question)
	if err != nil {
		fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, entry)
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	state, err := h.conversations.Clear(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, state)
}

func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	desc, err := h.store.Introspect(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, desc)
}

// GetReport runs one canned report and returns it with its markdown rendering.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	res, err := h.reports.Run(r.Context(), h.store, chi.URLParam(r, "domain"))
	if err != nil {
		fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, reportResponse{
		Domain:    res.Domain,
		Title:     res.Title,
		Total:     res.Total,
		Breakdown: res.Breakdown,
		Markdown:  format.Report(res),
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		fail(w, r, errx.Invalid("session id is required"))
		return "", false
	}
	return id, true
}
