package dbos

import (
	"context"
	"encoding/json"
	"fmt"
)

func moduleStateKey(requestID string) string { return "module_state:" + requestID }

func moduleStateIndexKey(agentID, moduleName string) string {
	return "module_states:" + agentID + ":" + moduleName
}

// SetModuleState executes the transition described in §4.2: it reads the
// current record (if any), validates the requested move is legal, assigns
// the next version, and writes the primary record plus its secondary-index
// entry. On ErrInvalidTransition the stored record is left untouched.
func (s *Store) SetModuleState(ctx context.Context, next ModuleState) (ModuleState, error) {
	return s.setModuleState(ctx, next, nil)
}

// SetModuleStateWithVersion additionally requires the stored version to
// equal expected before writing, supporting optimistic concurrency across
// multiple coordinators. A mismatch fails with ErrVersionConflict and no
// writes occur.
func (s *Store) SetModuleStateWithVersion(ctx context.Context, next ModuleState, expected int64) (ModuleState, error) {
	return s.setModuleState(ctx, next, &expected)
}

// setModuleState runs the read-check-write under s.kv.CAS so two
// coordinators racing on the same request_id cannot both pass the
// version/legal-transition check and both write: CAS re-reads current
// under a Redis WATCH and aborts the write if it changed underneath us.
func (s *Store) setModuleState(ctx context.Context, next ModuleState, expected *int64) (ModuleState, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	key := moduleStateKey(next.RequestID)

	err := s.kv.CAS(ctx, key, func(current string, exists bool) (string, error) {
		if exists {
			var currentState ModuleState
			if err := json.Unmarshal([]byte(current), &currentState); err != nil {
				return "", fmt.Errorf("decode module state: %w", err)
			}
			if expected != nil && currentState.Version != *expected {
				return "", ErrVersionConflict
			}
			if !isLegalTransition(currentState.State, next.State) {
				return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentState.State, next.State)
			}
			next.Version = currentState.Version + 1
		} else {
			if !isLegalTransition("", next.State) {
				return "", fmt.Errorf("%w: (none) -> %s", ErrInvalidTransition, next.State)
			}
			next.Version = 1
		}

		data, err := json.Marshal(next)
		if err != nil {
			return "", fmt.Errorf("marshal module state: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return ModuleState{}, mapKVError(err)
	}

	indexKey := moduleStateIndexKey(next.AgentID, next.ModuleName)
	if err := s.kv.ZAdd(ctx, indexKey, float64(next.Timestamp), next.RequestID); err != nil {
		return ModuleState{}, err
	}

	return next, nil
}

// GetModuleState returns the current record for requestID, or ErrNotFound.
func (s *Store) GetModuleState(ctx context.Context, requestID string) (ModuleState, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	raw, err := s.kv.Get(ctx, moduleStateKey(requestID))
	if err != nil {
		return ModuleState{}, mapKVError(err)
	}
	var st ModuleState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return ModuleState{}, fmt.Errorf("decode module state: %w", err)
	}
	return st, nil
}

// ListModuleStates returns states for agentID/moduleName ordered by
// ascending timestamp via the secondary index.
func (s *Store) ListModuleStates(ctx context.Context, agentID, moduleName string) ([]ModuleState, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ids, err := s.kv.ZRange(ctx, moduleStateIndexKey(agentID, moduleName), false, 0)
	if err != nil {
		return nil, err
	}

	states := make([]ModuleState, 0, len(ids))
	for _, id := range ids {
		st, err := s.GetModuleState(ctx, id)
		if err != nil {
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

// ListAllModuleStates scans every module-state record, for the REST
// surface's workflow listing endpoint.
func (s *Store) ListAllModuleStates(ctx context.Context) ([]ModuleState, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	keys, err := s.kv.ScanPrefix(ctx, "module_state:")
	if err != nil {
		return nil, err
	}

	states := make([]ModuleState, 0, len(keys))
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var st ModuleState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

// ListStaleNonTerminalStates scans every module-state record and returns
// those in {started, running} last written before cutoff, for the
// coordinator's restart recovery sweep.
func (s *Store) ListStaleNonTerminalStates(ctx context.Context, cutoff int64) ([]ModuleState, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	keys, err := s.kv.ScanPrefix(ctx, "module_state:")
	if err != nil {
		return nil, err
	}

	var stale []ModuleState
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var st ModuleState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		if (st.State == StateStarted || st.State == StateRunning) && st.Timestamp < cutoff {
			stale = append(stale, st)
		}
	}
	return stale, nil
}
