package dbos

import (
	"context"
	"encoding/json"
	"fmt"
)

func agentKey(id string) string { return "agent:" + id }

// RegisterAgent overwrites the agent record unconditionally: the newest
// heartbeat always wins, per the last-writer-wins policy in §4.2.
func (s *Store) RegisterAgent(ctx context.Context, a Agent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}
	if err := s.kv.Set(ctx, agentKey(a.ID), string(data), 0); err != nil {
		return err
	}
	return nil
}

// GetAgent returns the agent record for id, or ErrNotFound.
func (s *Store) GetAgent(ctx context.Context, id string) (Agent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	raw, err := s.kv.Get(ctx, agentKey(id))
	if err != nil {
		return Agent{}, mapKVError(err)
	}
	var a Agent
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Agent{}, fmt.Errorf("decode agent: %w", err)
	}
	return a, nil
}

// ListAgents scans the agent:* prefix and returns every known agent.
func (s *Store) ListAgents(ctx context.Context) ([]Agent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	keys, err := s.kv.ScanPrefix(ctx, "agent:")
	if err != nil {
		return nil, err
	}

	agents := make([]Agent, 0, len(keys))
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var a Agent
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		agents = append(agents, a)
	}
	return agents, nil
}
