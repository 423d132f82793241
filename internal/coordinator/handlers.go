package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/bus"
)

// handleOut processes a success payload from an agent's out subject: it
// persists the result, marks the workflow completed, and resolves any
// waiting synchronous caller.
func (c *Coordinator) handleOut(ctx context.Context, data []byte, headers map[string]string) error {
	var resp measurementResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("coordinator: decode out message: %w", err)
	}
	if resp.ID == "" {
		return nil
	}

	if c.isCancelled(resp.ID) {
		return nil
	}

	state, err := c.store.GetModuleState(ctx, resp.ID)
	if err != nil {
		return nil
	}
	if state.IsTerminal() {
		return nil
	}

	now := time.Now().Unix()
	if err := c.store.StoreResult(ctx, dbos.MeasurementResult{
		ID:         resp.ID,
		AgentID:    state.AgentID,
		RequestID:  resp.ID,
		ModuleName: state.ModuleName,
		Payload:    data,
		CreatedAt:  now,
		ReceivedAt: now,
	}); err != nil {
		return fmt.Errorf("coordinator: store result: %w", err)
	}

	if _, err := c.store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: resp.ID, AgentID: state.AgentID, ModuleName: state.ModuleName,
		State: dbos.StateCompleted, Timestamp: now,
	}); err != nil {
		return fmt.Errorf("coordinator: complete module state: %w", err)
	}
	if err := c.bus.Publish(ctx, bus.ModuleStateSubject, moduleStateBroadcast{
		AgentID: state.AgentID, ModuleName: state.ModuleName, State: dbos.StateCompleted,
		RequestID: resp.ID, Timestamp: now,
	}); err != nil {
		c.log.Printf("[WARN] broadcast module state: %v", err)
	}

	c.resolve(resp.ID, Outcome{RequestID: resp.ID, State: dbos.StateCompleted, Payload: data})
	return nil
}

// handleError processes an error payload from an agent's error subject: it
// marks the workflow errored (handler-error) without storing a result, and
// resolves any waiting synchronous caller.
func (c *Coordinator) handleError(ctx context.Context, data []byte, headers map[string]string) error {
	var resp measurementResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("coordinator: decode error message: %w", err)
	}
	if resp.ID == "" {
		return nil
	}

	if c.isCancelled(resp.ID) {
		return nil
	}

	state, err := c.store.GetModuleState(ctx, resp.ID)
	if err != nil {
		return nil
	}
	if state.IsTerminal() {
		return nil
	}

	now := time.Now().Unix()
	if _, err := c.store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: resp.ID, AgentID: state.AgentID, ModuleName: state.ModuleName,
		State: dbos.StateError, ErrorMessage: resp.Error, Timestamp: now,
	}); err != nil {
		return fmt.Errorf("coordinator: error module state: %w", err)
	}
	c.logEvent(ctx, "handler_error", resp.ID, map[string]string{"agent_id": state.AgentID, "module": state.ModuleName, "error": resp.Error})

	c.resolve(resp.ID, Outcome{RequestID: resp.ID, State: dbos.StateError, Error: resp.Error})
	return nil
}

// handleHeartbeat upserts the agent registry, monotonically advancing
// last_seen and total_heartbeats per the liveness-monotonicity invariant.
func (c *Coordinator) handleHeartbeat(ctx context.Context, data []byte, headers map[string]string) error {
	var hb heartbeatMessage
	if err := json.Unmarshal(data, &hb); err != nil {
		return fmt.Errorf("coordinator: decode heartbeat: %w", err)
	}
	if hb.AgentID == "" {
		return nil
	}

	existing, err := c.store.GetAgent(ctx, hb.AgentID)
	next := dbos.Agent{
		ID:              hb.AgentID,
		Hostname:        hb.Hostname,
		Alive:           true,
		FirstSeen:       int64(hb.FirstSeen),
		LastSeen:        int64(hb.Timestamp),
		Config:          hb.Config,
		TotalHeartbeats: hb.TotalHeartbeats,
	}
	if err == nil {
		if existing.FirstSeen != 0 && existing.FirstSeen < next.FirstSeen {
			next.FirstSeen = existing.FirstSeen
		}
		if existing.LastSeen > next.LastSeen {
			next.LastSeen = existing.LastSeen
		}
		if existing.TotalHeartbeats > next.TotalHeartbeats {
			next.TotalHeartbeats = existing.TotalHeartbeats
		}
	}

	return c.store.RegisterAgent(ctx, next)
}

func (c *Coordinator) resolve(requestID string, outcome Outcome) {
	c.awaitMu.Lock()
	ch, ok := c.awaiters[requestID]
	c.awaitMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- outcome:
	default:
	}
}

func (c *Coordinator) isCancelled(requestID string) bool {
	c.awaitMu.Lock()
	defer c.awaitMu.Unlock()
	return c.cancelled[requestID]
}
