package restapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
)

func (a *API) handleListResults(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	results, err := a.store.ListResults(ctx, agentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (a *API) handleGetResult(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	requestID := chi.URLParam(r, "rid")

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	result, err := a.store.GetResult(ctx, agentID, requestID)
	if err != nil {
		if errors.Is(err, dbos.ErrNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (a *API) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	requestID := chi.URLParam(r, "rid")

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.DeleteResult(ctx, agentID, requestID); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
