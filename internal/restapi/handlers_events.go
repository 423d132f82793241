package restapi

import (
	"errors"
	"net/http"
	"strconv"
)

const defaultEventsLimit = 100

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultEventsLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		if parsed <= 0 {
			respondError(w, http.StatusBadRequest, errors.New("limit must be positive"))
			return
		}
		limit = parsed
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	events, err := a.store.GetEvents(ctx, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}
