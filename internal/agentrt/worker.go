package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Arjun4522/internet-measurement-network/internal/modules"
	"github.com/Arjun4522/internet-measurement-network/pkg/bus"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
)

// workerHandler builds the per-module bus.Handler implementing the worker
// loop's five steps: decode/validate, publish running, invoke handle under
// a bounded-duration guard with crash isolation, then publish the outcome.
func (r *Runtime) workerHandler(m modules.Module) bus.Handler {
	return func(ctx context.Context, data []byte, headers map[string]string) error {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			r.log.Printf("[ERROR] %s: decode message: %v", m.Name(), err)
			return nil
		}

		requestID := ""
		if raw, ok := envelope["id"]; ok {
			_ = json.Unmarshal(raw, &requestID)
			delete(envelope, "id")
		}

		payload := make(map[string]any, len(envelope))
		for name, overrideValue := range r.moduleDefaults[m.Name()] {
			payload[name] = overrideValue
		}
		for k, raw := range envelope {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				continue
			}
			payload[k] = v
		}

		validated, err := m.Schema().Validate(payload)
		if err != nil {
			r.reportError(ctx, m.Name(), requestID, err, dbosState(false))
			return nil
		}

		if requestID != "" {
			r.reportRunning(ctx, m.Name(), requestID)
		}

		result, crashed, err := r.invoke(ctx, m, validated, headers)
		if err != nil {
			r.reportError(ctx, m.Name(), requestID, err, dbosState(crashed))
			return nil
		}

		r.reportSuccess(ctx, m.Name(), requestID, result)
		return nil
	}
}

// invoke runs m.Handle under a bounded-duration guard and a recover-based
// crash barrier, so a panicking module never propagates past its own
// worker loop.
func (r *Runtime) invoke(ctx context.Context, m modules.Module, payload map[string]any, headers map[string]string) (result any, crashed bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.handleTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				crashed = true
				err = fmt.Errorf("%s: panic: %v", m.Name(), rec)
			}
		}()
		result, err = m.Handle(ctx, payload, headers)
	}()

	select {
	case <-done:
		return result, crashed, err
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", m.Name(), ctx.Err())
	}
}

// dbosState maps a handler outcome to the terminal state named in the
// agent.module.state broadcast: unhandled crashes become failed, everything
// else (validation, handler-raised errors) becomes error. The persisted
// state is written by the coordinator, which records every message on an
// error subject as error, crashes included.
func dbosState(crashed bool) string {
	if crashed {
		return stateFailed
	}
	return stateError
}

const (
	stateRunning   = "running"
	stateCompleted = "completed"
	stateError     = "error"
	stateFailed    = "failed"
)

func (r *Runtime) reportRunning(ctx context.Context, moduleName, requestID string) {
	r.setModuleState(ctx, moduleName, requestID, stateRunning, "")
	r.broadcastState(ctx, moduleName, requestID, stateRunning, "")
}

func (r *Runtime) reportSuccess(ctx context.Context, moduleName, requestID string, result any) {
	envelope := map[string]any{}
	if m, ok := result.(map[string]any); ok {
		for k, v := range m {
			envelope[k] = v
		}
	} else if result != nil {
		envelope["result"] = result
	}
	if requestID != "" {
		envelope["id"] = requestID
	}

	if err := r.bus.Publish(ctx, bus.ModuleOut(r.agentID, moduleName), envelope); err != nil {
		r.log.Printf("[ERROR] %s: publish out: %v", moduleName, err)
	}

	// Terminal state is persisted by the coordinator once it processes this
	// same out message, not here — writing it directly would race the
	// coordinator's own SetModuleState call and could make it observe an
	// already-terminal state and skip StoreResult/resolve entirely.
	if requestID != "" {
		r.broadcastState(ctx, moduleName, requestID, stateCompleted, "")
	}
}

func (r *Runtime) reportError(ctx context.Context, moduleName, requestID string, cause error, state string) {
	envelope := map[string]any{"error": cause.Error()}
	if requestID != "" {
		envelope["id"] = requestID
	}

	if err := r.bus.Publish(ctx, bus.ModuleError(r.agentID, moduleName), envelope); err != nil {
		r.log.Printf("[ERROR] %s: publish error: %v", moduleName, err)
	}

	// See reportSuccess: the coordinator is the sole writer of terminal
	// module state, driven by this same error message.
	if requestID != "" {
		r.broadcastState(ctx, moduleName, requestID, state, cause.Error())
	}
}

func (r *Runtime) setModuleState(ctx context.Context, moduleName, requestID, state, errMsg string) {
	if r.dbos == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.dbos.SetModuleState(ctx, &dbosapi.SetModuleStateRequest{State: &dbosapi.ModuleState{
		RequestID:    requestID,
		AgentID:      r.agentID,
		ModuleName:   moduleName,
		State:        state,
		ErrorMessage: errMsg,
		Timestamp:    time.Now().Unix(),
	}})
	if err != nil {
		r.log.Printf("[WARN] %s: set module state %s: %v", moduleName, state, err)
	}
}

func (r *Runtime) broadcastState(ctx context.Context, moduleName, requestID, state, errMsg string) {
	broadcast := map[string]any{
		"agent_id":    r.agentID,
		"module_name": moduleName,
		"state":       state,
		"request_id":  requestID,
		"timestamp":   time.Now().Unix(),
	}
	if errMsg != "" {
		broadcast["error_message"] = errMsg
	}
	if err := r.bus.Publish(ctx, bus.ModuleStateSubject, broadcast); err != nil {
		r.log.Printf("[WARN] %s: broadcast module state: %v", moduleName, err)
	}
}
