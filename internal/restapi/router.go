// Package restapi implements the boundary-only REST surface in front of
// the coordinator: agent and workflow inspection, synchronous and
// asynchronous measurement dispatch, result retrieval, and the event log.
package restapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Arjun4522/internet-measurement-network/internal/coordinator"
	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
)

// Config controls runtime behaviour for the REST handlers.
type Config struct {
	LivenessWindow time.Duration
	RequestTimeout time.Duration
}

// Store is the subset of the durable state store the REST surface depends
// on, satisfied by both an in-process *dbos.Store and
// internal/dbosclient's gRPC-backed adapter.
type Store interface {
	ListAgents(ctx context.Context) ([]dbos.Agent, error)
	GetAgent(ctx context.Context, id string) (dbos.Agent, error)
	GetEvents(ctx context.Context, limit int64) ([]dbos.EventLogEntry, error)
	ListResults(ctx context.Context, agentID string) ([]dbos.MeasurementResult, error)
	GetResult(ctx context.Context, agentID, requestID string) (dbos.MeasurementResult, error)
	DeleteResult(ctx context.Context, agentID, requestID string) error
	ListAllModuleStates(ctx context.Context) ([]dbos.ModuleState, error)
	GetModuleState(ctx context.Context, requestID string) (dbos.ModuleState, error)
}

// API wires the coordinator and DBOS store to the HTTP surface.
type API struct {
	store  Store
	coord  *coordinator.Coordinator
	config Config
}

// New initialises the REST layer with sane defaults applied to cfg.
func New(store Store, coord *coordinator.Coordinator, cfg Config) (*API, error) {
	if store == nil {
		return nil, errors.New("restapi: store is required")
	}
	if coord == nil {
		return nil, errors.New("restapi: coordinator is required")
	}
	if cfg.LivenessWindow <= 0 {
		cfg.LivenessWindow = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &API{store: store, coord: coord, config: cfg}, nil
}

// Routes constructs the chi router containing every endpoint from §4.7,
// wrapped in traceMiddleware if non-nil (otelhttp when tracing is
// configured, a plain passthrough logger otherwise).
func (a *API) Routes(traceMiddleware func(http.Handler) http.Handler) (http.Handler, error) {
	if a == nil {
		return nil, errors.New("restapi: nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if traceMiddleware != nil {
		r.Use(traceMiddleware)
	}

	r.Get("/", a.handleHealth)
	r.Get("/agents", a.handleListAgents)
	r.Get("/agents/alive", a.handleListAliveAgents)
	r.Get("/agents/{id}", a.handleGetAgent)
	r.Get("/agents/{id}/results", a.handleListResults)
	r.Get("/agents/{id}/results/{rid}", a.handleGetResult)
	r.Delete("/agents/{id}/results/{rid}", a.handleDeleteResult)

	r.Post("/agent/{id}/{module}", a.handleDispatchSync)
	r.Post("/agent/{id}/{module}/async", a.handleDispatchAsync)

	r.Get("/workflows", a.handleListWorkflows)
	r.Get("/workflows/{id}", a.handleGetWorkflow)
	r.Post("/workflows/{id}/cancel", a.handleCancelWorkflow)

	r.Get("/modules/states/{rid}", a.handleGetWorkflow)
	r.Get("/events", a.handleListEvents)

	return r, nil
}
