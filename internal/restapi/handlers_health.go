package restapi

import (
	"net/http"
	"time"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	agents, err := a.store.ListAgents(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	workflows, err := a.store.ListAllModuleStates(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	alive := 0
	now := time.Now()
	for _, ag := range agents {
		if ag.IsAlive(now, a.config.LivenessWindow) {
			alive++
		}
	}

	nonTerminal := 0
	for _, wf := range workflows {
		if !wf.IsTerminal() {
			nonTerminal++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":                "ok",
		"agent_count":           len(agents),
		"agent_alive_count":     alive,
		"workflow_count":        len(workflows),
		"workflow_active_count": nonTerminal,
	})
}
