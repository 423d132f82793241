package dbos

import (
	"context"
	"encoding/json"
	"fmt"
)

func resultKey(agentID, requestID string) string { return "result:" + agentID + ":" + requestID }
func resultIndexKey(agentID string) string       { return "results:" + agentID }
func idempotencyKey(requestID string) string     { return "processed:" + requestID }

// StoreResult persists a measurement result idempotently: if the
// idempotency mark for r.RequestID is already set, the call is a no-op
// success. Otherwise it writes the primary record, the secondary index,
// and the idempotency mark, in that order — a crash between steps is
// tolerated on replay because the primary write is content-insensitive.
func (s *Store) StoreResult(ctx context.Context, r MeasurementResult) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	mark := idempotencyKey(r.RequestID)
	already, err := s.kv.Exists(ctx, mark)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := s.kv.Set(ctx, resultKey(r.AgentID, r.RequestID), string(data), 0); err != nil {
		return err
	}
	if err := s.kv.ZAdd(ctx, resultIndexKey(r.AgentID), float64(r.ReceivedAt), r.RequestID); err != nil {
		return err
	}
	if _, err := s.kv.SetNX(ctx, mark, "1", s.idempotencyTTL); err != nil {
		return err
	}
	return nil
}

// GetResult returns the result for (agentID, requestID), or ErrNotFound.
func (s *Store) GetResult(ctx context.Context, agentID, requestID string) (MeasurementResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	raw, err := s.kv.Get(ctx, resultKey(agentID, requestID))
	if err != nil {
		return MeasurementResult{}, mapKVError(err)
	}
	var r MeasurementResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return MeasurementResult{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}

// ListResults returns every result for agentID, ordered by ingest time.
func (s *Store) ListResults(ctx context.Context, agentID string) ([]MeasurementResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ids, err := s.kv.ZRange(ctx, resultIndexKey(agentID), false, 0)
	if err != nil {
		return nil, err
	}

	results := make([]MeasurementResult, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetResult(ctx, agentID, id)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// DeleteResult removes the result and its secondary-index entry and clears
// the idempotency mark, so a future StoreResult of the same request_id is
// accepted again. Used by the REST DELETE endpoint.
func (s *Store) DeleteResult(ctx context.Context, agentID, requestID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := s.kv.Delete(ctx, resultKey(agentID, requestID)); err != nil {
		return err
	}
	if err := s.kv.ZRem(ctx, resultIndexKey(agentID), requestID); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, idempotencyKey(requestID)); err != nil {
		return err
	}
	return nil
}
