package api

import (
	"context"
	"net/http"
	"strconv"

	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/incident"
	"github.com/urbanbot/server/internal/store"
)

// record decodes a payload of type T and hands it to fn.
func record[T any](w http.ResponseWriter, r *http.Request, fn func(context.Context, T) (incident.Outcome, error)) {
	var in T
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	out, err := fn(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if !out.Stored {
		status = http.StatusOK
	}
	JSON(w, status, out)
}

func (h *Handler) RecordTraffic(w http.ResponseWriter, r *http.Request) {
	record(w, r, h.recorder.RecordTraffic)
}

func (h *Handler) RecordCrowd(w http.ResponseWriter, r *http.Request) {
	record(w, r, h.recorder.RecordCrowd)
}

func (h *Handler) RecordAccident(w http.ResponseWriter, r *http.Request) {
	record(w, r, h.recorder.RecordAccident)
}

func (h *Handler) RecordAQI(w http.ResponseWriter, r *http.Request) {
	record(w, r, h.recorder.RecordAQI)
}

func (h *Handler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	record(w, r, h.recorder.SubmitComplaint)
}

func (h *Handler) RecordRoadDamage(w http.ResponseWriter, r *http.Request) {
	record(w, r, h.recorder.RecordRoadDamage)
}

// ListComplaints returns the newest complaints; limit defaults to 10.
func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			fail(w, r, errx.Invalid("limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	complaints, err := h.recorder.RecentComplaints(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if complaints == nil {
		complaints = []store.Complaint{}
	}
	JSON(w, http.StatusOK, map[string]any{"complaints": complaints})
}
