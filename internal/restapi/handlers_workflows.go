package restapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Arjun4522/internet-measurement-network/internal/coordinator"
	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
)

func (a *API) handleDispatchSync(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	moduleName := chi.URLParam(r, "module")
	requestID := r.URL.Query().Get("request_id")

	payload, err := readPayload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := a.coord.Dispatch(r.Context(), agentID, moduleName, payload, requestID, a.config.RequestTimeout)
	if err != nil {
		if coordinator.IsBusy(err) {
			respondError(w, http.StatusTooManyRequests, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomeToJSON(outcome))
}

func (a *API) handleDispatchAsync(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	moduleName := chi.URLParam(r, "module")
	requestID := r.URL.Query().Get("request_id")

	payload, err := readPayload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	id, err := a.coord.DispatchAsync(r.Context(), agentID, moduleName, payload, requestID)
	if err != nil {
		if coordinator.IsBusy(err) {
			respondError(w, http.StatusTooManyRequests, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"request_id": id})
}

func (a *API) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	all, err := a.store.ListAllModuleStates(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	workflows := make([]dbos.ModuleState, 0, len(all))
	for _, st := range all {
		switch status {
		case "terminal":
			if st.IsTerminal() {
				workflows = append(workflows, st)
			}
		case "non-terminal", "active":
			if !st.IsTerminal() {
				workflows = append(workflows, st)
			}
		default:
			workflows = append(workflows, st)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

func (a *API) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		requestID = chi.URLParam(r, "rid")
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	st, err := a.store.GetModuleState(ctx, requestID)
	if err != nil {
		if errors.Is(err, dbos.ErrNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"workflow": st})
}

func (a *API) handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.coord.Cancel(ctx, requestID); err != nil {
		if errors.Is(err, dbos.ErrNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func readPayload(r *http.Request) (json.RawMessage, error) {
	if r.Body == nil {
		return json.RawMessage("{}"), nil
	}
	defer r.Body.Close()

	var raw json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return json.RawMessage("{}"), nil
		}
		return nil, err
	}
	return raw, nil
}

func outcomeToJSON(o coordinator.Outcome) map[string]any {
	return map[string]any{
		"request_id": o.RequestID,
		"state":      o.State,
		"payload":    o.Payload,
		"error":      o.Error,
	}
}
