// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/domain/analysis"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/ranking"
	"github.com/ledesport/podio/internal/domain/workflow"
)

// Actor headers carrying the caller identity and role established by the
// external identity collaborator.
const (
	headerActor = "X-Podio-Actor"
	headerRole  = "X-Podio-Role"
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the app service.
type Dependencies interface {
	RegisterAthlete(ctx context.Context, a model.Athlete) error
	RegisterCommitteeMember(ctx context.Context, memberID string) error
	IngestPhysicalTest(ctx context.Context, t model.PhysicalTest) error
	IngestPostTrainingRecord(ctx context.Context, r model.PostTrainingRecord) error

	ComputeRanking(ctx context.Context, category model.WeightCategory) (ranking.Result, error)
	ComputeRankingFor(ctx context.Context, athleteID string) (ranking.Neighborhood, error)
	AnalyzePerformance(ctx context.Context, athleteID string) ([]analysis.Signal, error)

	GetRecommendation(ctx context.Context, id string) (model.Recommendation, error)
	ListRecommendations(ctx context.Context, athleteID string) ([]model.Recommendation, error)
	Transition(ctx context.Context, id string, actor workflow.Actor, req workflow.Request) (model.Recommendation, error)
	SpawnFromModification(ctx context.Context, originID string) (model.Recommendation, error)

	ListNotifications(ctx context.Context, recipient string, f repository.NotificationFilter) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, recipient string) error
}

// StatsProvider exposes service statistics.
type StatsProvider interface {
	Stats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the engine API.
type Server struct {
	deps  Dependencies
	stats StatsProvider
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider) *Server {
	return &Server{deps: deps, stats: stats}
}

// Router builds the chi router with all routes attached.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/stats", s.handleStats)

	r.Post("/athletes", s.handleRegisterAthlete)
	r.Post("/committee", s.handleRegisterCommitteeMember)
	r.Post("/tests", s.handleIngestTest)
	r.Post("/records", s.handleIngestRecord)

	r.Get("/rankings/{category}", s.handleRanking)
	r.Get("/rankings/athlete/{athleteID}", s.handleRankingFor)
	r.Get("/athletes/{athleteID}/analysis", s.handleAnalysis)
	r.Get("/athletes/{athleteID}/recommendations", s.handleListRecommendations)

	r.Get("/recommendations/{id}", s.handleGetRecommendation)
	r.Post("/recommendations/{id}/transitions", s.handleTransition)
	r.Post("/recommendations/{id}/spawn", s.handleSpawn)

	r.Get("/notifications", s.handleListNotifications)
	r.Post("/notifications/{id}/read", s.handleMarkRead)

	return r
}

// actorFrom extracts the caller identity from request headers.
func actorFrom(r *http.Request) workflow.Actor {
	return workflow.Actor{
		ID:   r.Header.Get(headerActor),
		Role: model.Role(r.Header.Get(headerRole)),
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the error envelope returned to clients.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	State   string            `json:"state,omitempty"`
	Allowed []model.Operation `json:"allowed_operations,omitempty"`
}

// writeError maps err onto the wire envelope.
func writeError(w http.ResponseWriter, err error) {
	status, body := mapError(err)
	writeJSON(w, status, body)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return ErrBadRequest
	}
	return nil
}
