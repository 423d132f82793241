// Package dbosclient adapts dbosapi.DBOSClient to the same method surface
// internal/dbos.Store exposes in-process, so the coordinator and REST
// surface can reach the durable state store over gRPC (its C3 service
// contract) without knowing whether they're talking to an in-process store
// or a remote one. Every call translates domain types to wire messages and
// back, and reconstructs the store's sentinel errors from the wire's
// Found/Success/Error convention the same way internal/dbosserver produces
// them.
package dbosclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
)

// Client wraps a dbosapi.DBOSClient, presenting the durable-state-store
// method surface the coordinator and restapi packages call directly on
// internal/dbos.Store.
type Client struct {
	rpc dbosapi.DBOSClient
}

// New wraps rpc for use as a coordinator/restapi store dependency.
func New(rpc dbosapi.DBOSClient) *Client {
	return &Client{rpc: rpc}
}

func (c *Client) RegisterAgent(ctx context.Context, a dbos.Agent) error {
	resp, err := c.rpc.RegisterAgent(ctx, &dbosapi.RegisterAgentRequest{Agent: fromAgent(a)})
	if err != nil {
		return fmt.Errorf("dbosclient: register agent: %w", err)
	}
	return callErr("register agent", resp.Success, resp.Error)
}

func (c *Client) GetAgent(ctx context.Context, id string) (dbos.Agent, error) {
	resp, err := c.rpc.GetAgent(ctx, &dbosapi.GetAgentRequest{AgentID: id})
	if err != nil {
		return dbos.Agent{}, fmt.Errorf("dbosclient: get agent: %w", err)
	}
	if !resp.Found {
		return dbos.Agent{}, notFoundOr(resp.Error)
	}
	return toAgent(resp.Agent), nil
}

func (c *Client) ListAgents(ctx context.Context) ([]dbos.Agent, error) {
	resp, err := c.rpc.ListAgents(ctx, &dbosapi.ListAgentsRequest{})
	if err != nil {
		return nil, fmt.Errorf("dbosclient: list agents: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	out := make([]dbos.Agent, len(resp.Agents))
	for i, a := range resp.Agents {
		out[i] = toAgent(a)
	}
	return out, nil
}

func (c *Client) SetModuleState(ctx context.Context, next dbos.ModuleState) (dbos.ModuleState, error) {
	return c.setModuleState(ctx, next, nil)
}

func (c *Client) SetModuleStateWithVersion(ctx context.Context, next dbos.ModuleState, expected int64) (dbos.ModuleState, error) {
	return c.setModuleState(ctx, next, &expected)
}

func (c *Client) setModuleState(ctx context.Context, next dbos.ModuleState, expected *int64) (dbos.ModuleState, error) {
	req := &dbosapi.SetModuleStateRequest{State: fromModuleState(next)}
	if expected != nil {
		req.UseExpectedVersion = true
		req.ExpectedVersion = *expected
	}
	resp, err := c.rpc.SetModuleState(ctx, req)
	if err != nil {
		return dbos.ModuleState{}, fmt.Errorf("dbosclient: set module state: %w", err)
	}
	if !resp.Success {
		return dbos.ModuleState{}, classifySetModuleStateError(resp.Error)
	}
	return toModuleState(resp.State), nil
}

func (c *Client) GetModuleState(ctx context.Context, requestID string) (dbos.ModuleState, error) {
	resp, err := c.rpc.GetModuleState(ctx, &dbosapi.GetModuleStateRequest{RequestID: requestID})
	if err != nil {
		return dbos.ModuleState{}, fmt.Errorf("dbosclient: get module state: %w", err)
	}
	if !resp.Found {
		return dbos.ModuleState{}, notFoundOr(resp.Error)
	}
	return toModuleState(resp.State), nil
}

func (c *Client) ListModuleStates(ctx context.Context, agentID, moduleName string) ([]dbos.ModuleState, error) {
	resp, err := c.rpc.ListModuleStates(ctx, &dbosapi.ListModuleStatesRequest{AgentID: agentID, ModuleName: moduleName})
	if err != nil {
		return nil, fmt.Errorf("dbosclient: list module states: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return toModuleStates(resp.States), nil
}

func (c *Client) ListAllModuleStates(ctx context.Context) ([]dbos.ModuleState, error) {
	resp, err := c.rpc.ListAllModuleStates(ctx, &dbosapi.ListAllModuleStatesRequest{})
	if err != nil {
		return nil, fmt.Errorf("dbosclient: list all module states: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return toModuleStates(resp.States), nil
}

func (c *Client) ListStaleNonTerminalStates(ctx context.Context, cutoff int64) ([]dbos.ModuleState, error) {
	resp, err := c.rpc.ListStaleNonTerminalStates(ctx, &dbosapi.ListStaleNonTerminalStatesRequest{Cutoff: cutoff})
	if err != nil {
		return nil, fmt.Errorf("dbosclient: list stale module states: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return toModuleStates(resp.States), nil
}

func (c *Client) StoreResult(ctx context.Context, r dbos.MeasurementResult) error {
	resp, err := c.rpc.StoreResult(ctx, &dbosapi.StoreResultRequest{Result: fromResult(r)})
	if err != nil {
		return fmt.Errorf("dbosclient: store result: %w", err)
	}
	return callErr("store result", resp.Success, resp.Error)
}

func (c *Client) GetResult(ctx context.Context, agentID, requestID string) (dbos.MeasurementResult, error) {
	resp, err := c.rpc.GetResult(ctx, &dbosapi.GetResultRequest{AgentID: agentID, RequestID: requestID})
	if err != nil {
		return dbos.MeasurementResult{}, fmt.Errorf("dbosclient: get result: %w", err)
	}
	if !resp.Found {
		return dbos.MeasurementResult{}, notFoundOr(resp.Error)
	}
	return toResult(resp.Result), nil
}

func (c *Client) ListResults(ctx context.Context, agentID string) ([]dbos.MeasurementResult, error) {
	resp, err := c.rpc.ListResults(ctx, &dbosapi.ListResultsRequest{AgentID: agentID})
	if err != nil {
		return nil, fmt.Errorf("dbosclient: list results: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	out := make([]dbos.MeasurementResult, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = toResult(r)
	}
	return out, nil
}

func (c *Client) DeleteResult(ctx context.Context, agentID, requestID string) error {
	resp, err := c.rpc.DeleteResult(ctx, &dbosapi.DeleteResultRequest{AgentID: agentID, RequestID: requestID})
	if err != nil {
		return fmt.Errorf("dbosclient: delete result: %w", err)
	}
	return callErr("delete result", resp.Success, resp.Error)
}

func (c *Client) RequeueExpiredTasks(ctx context.Context, now int64) (int, error) {
	resp, err := c.rpc.RequeueExpiredTasks(ctx, &dbosapi.RequeueExpiredTasksRequest{Timestamp: now})
	if err != nil {
		return 0, fmt.Errorf("dbosclient: requeue expired tasks: %w", err)
	}
	if resp.Error != "" {
		return 0, errors.New(resp.Error)
	}
	return resp.Count, nil
}

func (c *Client) LogEvent(ctx context.Context, entry dbos.EventLogEntry) error {
	resp, err := c.rpc.LogEvent(ctx, &dbosapi.LogEventRequest{Entry: &dbosapi.EventLogEntry{
		Kind: entry.Kind, Message: entry.Message, Metadata: entry.Metadata, Timestamp: entry.Timestamp,
	}})
	if err != nil {
		return fmt.Errorf("dbosclient: log event: %w", err)
	}
	return callErr("log event", resp.Success, resp.Error)
}

func (c *Client) GetEvents(ctx context.Context, limit int64) ([]dbos.EventLogEntry, error) {
	resp, err := c.rpc.GetEvents(ctx, &dbosapi.GetEventsRequest{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("dbosclient: get events: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	out := make([]dbos.EventLogEntry, len(resp.Events))
	for i, e := range resp.Events {
		out[i] = dbos.EventLogEntry{Kind: e.Kind, Message: e.Message, Metadata: e.Metadata, Timestamp: e.Timestamp}
	}
	return out, nil
}

func callErr(op string, success bool, msg string) error {
	if success {
		return nil
	}
	if msg == "" {
		return fmt.Errorf("dbosclient: %s failed", op)
	}
	return errors.New(msg)
}

func notFoundOr(msg string) error {
	if msg == "" {
		return dbos.ErrNotFound
	}
	return errors.New(msg)
}

// classifySetModuleStateError recovers dbos's version-conflict and
// invalid-transition sentinels from the wire's plain error string, so a
// gRPC-backed store still lets callers use errors.Is against them the way
// an in-process *dbos.Store does.
func classifySetModuleStateError(msg string) error {
	switch {
	case msg == "":
		return errors.New("dbosclient: set module state failed")
	case containsPrefix(msg, dbos.ErrVersionConflict.Error()):
		return fmt.Errorf("%w", dbos.ErrVersionConflict)
	case containsPrefix(msg, dbos.ErrInvalidTransition.Error()):
		return fmt.Errorf("%w: %s", dbos.ErrInvalidTransition, msg)
	default:
		return errors.New(msg)
	}
}

func containsPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func fromAgent(a dbos.Agent) *dbosapi.Agent {
	return &dbosapi.Agent{
		ID:              a.ID,
		Hostname:        a.Hostname,
		Alive:           a.Alive,
		FirstSeen:       a.FirstSeen,
		LastSeen:        a.LastSeen,
		Config:          a.Config,
		TotalHeartbeats: a.TotalHeartbeats,
	}
}

func toAgent(a *dbosapi.Agent) dbos.Agent {
	if a == nil {
		return dbos.Agent{}
	}
	return dbos.Agent{
		ID:              a.ID,
		Hostname:        a.Hostname,
		Alive:           a.Alive,
		FirstSeen:       a.FirstSeen,
		LastSeen:        a.LastSeen,
		Config:          a.Config,
		TotalHeartbeats: a.TotalHeartbeats,
	}
}

func fromModuleState(st dbos.ModuleState) *dbosapi.ModuleState {
	return &dbosapi.ModuleState{
		RequestID:    st.RequestID,
		AgentID:      st.AgentID,
		ModuleName:   st.ModuleName,
		State:        st.State,
		ErrorMessage: st.ErrorMessage,
		Details:      st.Details,
		Timestamp:    st.Timestamp,
		Version:      st.Version,
	}
}

func toModuleState(st *dbosapi.ModuleState) dbos.ModuleState {
	if st == nil {
		return dbos.ModuleState{}
	}
	return dbos.ModuleState{
		RequestID:    st.RequestID,
		AgentID:      st.AgentID,
		ModuleName:   st.ModuleName,
		State:        st.State,
		ErrorMessage: st.ErrorMessage,
		Details:      st.Details,
		Timestamp:    st.Timestamp,
		Version:      st.Version,
	}
}

func toModuleStates(states []*dbosapi.ModuleState) []dbos.ModuleState {
	out := make([]dbos.ModuleState, len(states))
	for i, st := range states {
		out[i] = toModuleState(st)
	}
	return out
}

func fromResult(r dbos.MeasurementResult) *dbosapi.MeasurementResult {
	return &dbosapi.MeasurementResult{
		ID:             r.ID,
		AgentID:        r.AgentID,
		RequestID:      r.RequestID,
		ModuleName:     r.ModuleName,
		Payload:        r.Payload,
		CreatedAt:      r.CreatedAt,
		ReceivedAt:     r.ReceivedAt,
		AgentStartTime: r.AgentStartTime,
		RuntimeVersion: r.RuntimeVersion,
		ModuleRevision: r.ModuleRevision,
		ServerID:       r.ServerID,
		IngestSource:   r.IngestSource,
	}
}

func toResult(r *dbosapi.MeasurementResult) dbos.MeasurementResult {
	if r == nil {
		return dbos.MeasurementResult{}
	}
	return dbos.MeasurementResult{
		ID:             r.ID,
		AgentID:        r.AgentID,
		RequestID:      r.RequestID,
		ModuleName:     r.ModuleName,
		Payload:        r.Payload,
		CreatedAt:      r.CreatedAt,
		ReceivedAt:     r.ReceivedAt,
		AgentStartTime: r.AgentStartTime,
		RuntimeVersion: r.RuntimeVersion,
		ModuleRevision: r.ModuleRevision,
		ServerID:       r.ServerID,
		IngestSource:   r.IngestSource,
	}
}
