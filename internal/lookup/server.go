// Package lookup serves read-only ledger lookups over HTTP so scrapers can
// skip organizers and listings that are already known.
package lookup

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/aggregate"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/scoring"
)

// ExistsResponse answers an existence check.
type ExistsResponse struct {
	Exists bool   `json:"exists"`
	Key    string `json:"key,omitempty"`
}

// OrganizerResponse is an organizer with its freshly computed facts.
type OrganizerResponse struct {
	Organizer  model.Organizer  `json:"organizer"`
	Aggregates model.Aggregates `json:"aggregates"`
	Score      scoring.Result   `json:"score"`
	Events     []model.Event    `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes ledger lookups.
type Server struct {
	ledger  *ledger.Ledger
	origins []string
}

// NewServer creates a Server over l. Requests from origins are allowed by
// CORS; an empty list allows any origin.
func NewServer(l *ledger.Ledger, origins []string) *Server {
	return &Server{ledger: l, origins: origins}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/organizers/exists", s.organizerExists)
	r.Get("/organizers/{key}", s.organizer)
	r.Get("/events/exists", s.eventExists)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	st := s.ledger.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"organizers": st.Organizers,
		"events":     st.Events,
	})
}

func (s *Server) organizerExists(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	key, ok := s.ledger.FindByNormalizedName(name)
	writeJSON(w, http.StatusOK, ExistsResponse{Exists: ok, Key: key})
}

func (s *Server) eventExists(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}
	resp := ExistsResponse{}
	if key, ok := s.ledger.EventKeyFor(raw); ok {
		resp = ExistsResponse{Exists: true, Key: key}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) organizer(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	org, ok := s.ledger.Organizer(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "organizer not found"})
		return
	}

	events := s.ledger.EventsFor(key)
	agg := aggregate.Compute(events)
	writeJSON(w, http.StatusOK, OrganizerResponse{
		Organizer:  org,
		Aggregates: agg,
		Score: scoring.Score(scoring.Input{
			DisplayName:    org.DisplayName,
			Aggregates:     agg,
			Classification: org.ClassificationRecord(),
		}),
		Events: events,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("lookup: encode response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("lookup: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
