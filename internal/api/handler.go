// Package api exposes the chat agent, reports and incident recorder over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/urbanbot/server/internal/agent/model"
	"github.com/urbanbot/server/internal/agent/reports"
	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/incident"
	logx "github.com/urbanbot/server/pkg/logger"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// Conversations is the chat side of the service.
type Conversations interface {
	Start(ctx context.Context, sessionID string) (model.ConversationState, error)
	Ask(ctx context.Context, sessionID, question string) (model.ConversationEntry, error)
	History(ctx context.Context, sessionID string) (model.ConversationState, error)
	Clear(ctx context.Context, sessionID string) (model.ConversationState, error)
}

// Store is the read side used by the schema and report endpoints.
type Store interface {
	reports.Querier
	Introspect(ctx context.Context) (model.SchemaDescription, error)
}

// Handler holds the collaborators behind every route.
type Handler struct {
	conversations Conversations
	store         Store
	reports       *reports.Registry
	recorder      *incident.Recorder
}

func NewHandler(conversations Conversations, store Store, reg *reports.Registry, recorder *incident.Recorder) *Handler {
	return &Handler{
		conversations: conversations,
		store:         store,
		reports:       reg,
		recorder:      recorder,
	}
}

// NewRouter builds the chi router with global middleware and every route.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the chat, data and incident routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}/messages", h.GetMessages)
		r.Post("/sessions/{id}/messages", h.PostMessage)
		r.Delete("/sessions/{id}/messages", h.ClearMessages)

		r.Get("/schema", h.GetSchema)
		r.Get("/reports/{domain}", h.GetReport)

		r.Route("/incidents", func(r chi.Router) {
			r.Post("/traffic", h.RecordTraffic)
			r.Post("/crowd", h.RecordCrowd)
			r.Post("/accident", h.RecordAccident)
			r.Post("/aqi", h.RecordAQI)
			r.Post("/complaints", h.SubmitComplaint)
			r.Get("/complaints", h.ListComplaints)
			r.Post("/road-damage", h.RecordRoadDamage)
		})
	})
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// fail maps err to its status and safe message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	ev := logx.Warn()
	if status >= http.StatusInternalServerError {
		ev = logx.Error()
	}
	ev.Err(err).
		Str("request_id", chiMiddleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
	Error(w, status, errx.MessageOf(err))
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errx.Invalid("invalid request body: %v", err)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logx.Info().
				Str("request_id", chiMiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}
