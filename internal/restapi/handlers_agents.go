package restapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
)

func (a *API) handleListAgents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	agents, err := a.store.ListAgents(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (a *API) handleListAliveAgents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	agents, err := a.store.ListAgents(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	now := time.Now()
	alive := make([]dbos.Agent, 0, len(agents))
	for _, ag := range agents {
		if ag.IsAlive(now, a.config.LivenessWindow) {
			alive = append(alive, ag)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"agents": alive})
}

func (a *API) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	agent, err := a.store.GetAgent(ctx, id)
	if err != nil {
		if errors.Is(err, dbos.ErrNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agent": agent})
}
