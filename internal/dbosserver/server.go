// Package dbosserver adapts internal/dbos.Store to the dbosapi gRPC
// contract, translating wire messages to store types and store errors to
// per-call Found/Success/Error fields instead of gRPC status codes, the
// same convention the original DBOS service used.
package dbosserver

import (
	"context"
	"errors"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
)

// Server implements dbosapi.DBOSServer over a durable store.
type Server struct {
	dbosapi.UnimplementedDBOSServer
	store *dbos.Store
}

// New wraps store for gRPC exposure.
func New(store *dbos.Store) *Server {
	return &Server{store: store}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Server) RegisterAgent(ctx context.Context, req *dbosapi.RegisterAgentRequest) (*dbosapi.RegisterAgentResponse, error) {
	a := req.Agent
	err := s.store.RegisterAgent(ctx, dbos.Agent{
		ID:              a.ID,
		Hostname:        a.Hostname,
		Alive:           a.Alive,
		FirstSeen:       a.FirstSeen,
		LastSeen:        a.LastSeen,
		Config:          a.Config,
		TotalHeartbeats: a.TotalHeartbeats,
	})
	if err != nil {
		return &dbosapi.RegisterAgentResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.RegisterAgentResponse{Success: true}, nil
}

func (s *Server) GetAgent(ctx context.Context, req *dbosapi.GetAgentRequest) (*dbosapi.GetAgentResponse, error) {
	a, err := s.store.GetAgent(ctx, req.AgentID)
	if errors.Is(err, dbos.ErrNotFound) {
		return &dbosapi.GetAgentResponse{Found: false}, nil
	}
	if err != nil {
		return &dbosapi.GetAgentResponse{Found: false, Error: errString(err)}, nil
	}
	return &dbosapi.GetAgentResponse{Found: true, Agent: toAPIAgent(a)}, nil
}

func (s *Server) ListAgents(ctx context.Context, req *dbosapi.ListAgentsRequest) (*dbosapi.ListAgentsResponse, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return &dbosapi.ListAgentsResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.Agent, len(agents))
	for i, a := range agents {
		out[i] = toAPIAgent(a)
	}
	return &dbosapi.ListAgentsResponse{Agents: out}, nil
}

func toAPIAgent(a dbos.Agent) *dbosapi.Agent {
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

func (s *Server) SetModuleState(ctx context.Context, req *dbosapi.SetModuleStateRequest) (*dbosapi.SetModuleStateResponse, error) {
	st := req.State
	next := dbos.ModuleState{
		RequestID:    st.RequestID,
		AgentID:      st.AgentID,
		ModuleName:   st.ModuleName,
		State:        st.State,
		ErrorMessage: st.ErrorMessage,
		Details:      st.Details,
		Timestamp:    st.Timestamp,
	}

	var result dbos.ModuleState
	var err error
	if req.UseExpectedVersion {
		result, err = s.store.SetModuleStateWithVersion(ctx, next, req.ExpectedVersion)
	} else {
		result, err = s.store.SetModuleState(ctx, next)
	}
	if err != nil {
		return &dbosapi.SetModuleStateResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.SetModuleStateResponse{Success: true, State: toAPIModuleState(result)}, nil
}

func (s *Server) GetModuleState(ctx context.Context, req *dbosapi.GetModuleStateRequest) (*dbosapi.GetModuleStateResponse, error) {
	st, err := s.store.GetModuleState(ctx, req.RequestID)
	if errors.Is(err, dbos.ErrNotFound) {
		return &dbosapi.GetModuleStateResponse{Found: false}, nil
	}
	if err != nil {
		return &dbosapi.GetModuleStateResponse{Found: false, Error: errString(err)}, nil
	}
	return &dbosapi.GetModuleStateResponse{Found: true, State: toAPIModuleState(st)}, nil
}

func (s *Server) ListModuleStates(ctx context.Context, req *dbosapi.ListModuleStatesRequest) (*dbosapi.ListModuleStatesResponse, error) {
	states, err := s.store.ListModuleStates(ctx, req.AgentID, req.ModuleName)
	if err != nil {
		return &dbosapi.ListModuleStatesResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.ModuleState, len(states))
	for i, st := range states {
		out[i] = toAPIModuleState(st)
	}
	return &dbosapi.ListModuleStatesResponse{States: out}, nil
}

func toAPIModuleState(st dbos.ModuleState) *dbosapi.ModuleState {
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

func (s *Server) StoreResult(ctx context.Context, req *dbosapi.StoreResultRequest) (*dbosapi.StoreResultResponse, error) {
	r := req.Result
	err := s.store.StoreResult(ctx, dbos.MeasurementResult{
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
	})
	if err != nil {
		return &dbosapi.StoreResultResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.StoreResultResponse{Success: true}, nil
}

func (s *Server) GetResult(ctx context.Context, req *dbosapi.GetResultRequest) (*dbosapi.GetResultResponse, error) {
	r, err := s.store.GetResult(ctx, req.AgentID, req.RequestID)
	if errors.Is(err, dbos.ErrNotFound) {
		return &dbosapi.GetResultResponse{Found: false}, nil
	}
	if err != nil {
		return &dbosapi.GetResultResponse{Found: false, Error: errString(err)}, nil
	}
	return &dbosapi.GetResultResponse{Found: true, Result: toAPIResult(r)}, nil
}

func (s *Server) ListResults(ctx context.Context, req *dbosapi.ListResultsRequest) (*dbosapi.ListResultsResponse, error) {
	results, err := s.store.ListResults(ctx, req.AgentID)
	if err != nil {
		return &dbosapi.ListResultsResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.MeasurementResult, len(results))
	for i, r := range results {
		out[i] = toAPIResult(r)
	}
	return &dbosapi.ListResultsResponse{Results: out}, nil
}

func (s *Server) DeleteResult(ctx context.Context, req *dbosapi.DeleteResultRequest) (*dbosapi.DeleteResultResponse, error) {
	if err := s.store.DeleteResult(ctx, req.AgentID, req.RequestID); err != nil {
		return &dbosapi.DeleteResultResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.DeleteResultResponse{Success: true}, nil
}

func toAPIResult(r dbos.MeasurementResult) *dbosapi.MeasurementResult {
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

func (s *Server) ScheduleTask(ctx context.Context, req *dbosapi.ScheduleTaskRequest) (*dbosapi.ScheduleTaskResponse, error) {
	t := req.Task
	err := s.store.ScheduleTask(ctx, dbos.Task{
		ID:          t.ID,
		AgentID:     t.AgentID,
		ModuleName:  t.ModuleName,
		Payload:     t.Payload,
		ScheduledAt: t.ScheduledAt,
		CreatedAt:   t.CreatedAt,
		Status:      t.Status,
	})
	if err != nil {
		return &dbosapi.ScheduleTaskResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.ScheduleTaskResponse{Success: true}, nil
}

func (s *Server) GetTask(ctx context.Context, req *dbosapi.GetTaskRequest) (*dbosapi.GetTaskResponse, error) {
	t, err := s.store.GetTask(ctx, req.TaskID)
	if errors.Is(err, dbos.ErrNotFound) {
		return &dbosapi.GetTaskResponse{Found: false}, nil
	}
	if err != nil {
		return &dbosapi.GetTaskResponse{Found: false, Error: errString(err)}, nil
	}
	return &dbosapi.GetTaskResponse{Found: true, Task: toAPITask(t)}, nil
}

func (s *Server) ListDueTasks(ctx context.Context, req *dbosapi.ListDueTasksRequest) (*dbosapi.ListDueTasksResponse, error) {
	tasks, err := s.store.ListDueTasks(ctx, req.Timestamp)
	if err != nil {
		return &dbosapi.ListDueTasksResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.Task, len(tasks))
	for i, t := range tasks {
		out[i] = toAPITask(t)
	}
	return &dbosapi.ListDueTasksResponse{Tasks: out}, nil
}

func (s *Server) ClaimDueTasks(ctx context.Context, req *dbosapi.ClaimDueTasksRequest) (*dbosapi.ClaimDueTasksResponse, error) {
	tasks, err := s.store.ClaimDueTasks(ctx, req.Timestamp, req.VisibilityTimeout)
	if err != nil {
		return &dbosapi.ClaimDueTasksResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.Task, len(tasks))
	for i, t := range tasks {
		out[i] = toAPITask(t)
	}
	return &dbosapi.ClaimDueTasksResponse{Tasks: out}, nil
}

func (s *Server) AckTask(ctx context.Context, req *dbosapi.AckTaskRequest) (*dbosapi.AckTaskResponse, error) {
	if err := s.store.AckTask(ctx, req.TaskID); err != nil {
		return &dbosapi.AckTaskResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.AckTaskResponse{Success: true}, nil
}

func (s *Server) NackTask(ctx context.Context, req *dbosapi.NackTaskRequest) (*dbosapi.NackTaskResponse, error) {
	if err := s.store.NackTask(ctx, req.TaskID, req.RetryDelay, req.Timestamp); err != nil {
		return &dbosapi.NackTaskResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.NackTaskResponse{Success: true}, nil
}

func toAPITask(t dbos.Task) *dbosapi.Task {
	return &dbosapi.Task{
		ID:          t.ID,
		AgentID:     t.AgentID,
		ModuleName:  t.ModuleName,
		Payload:     t.Payload,
		ScheduledAt: t.ScheduledAt,
		CreatedAt:   t.CreatedAt,
		Status:      t.Status,
		VisibleAt:   t.VisibleAt,
		RetryCount:  t.RetryCount,
	}
}

func (s *Server) LogEvent(ctx context.Context, req *dbosapi.LogEventRequest) (*dbosapi.LogEventResponse, error) {
	e := req.Entry
	err := s.store.LogEvent(ctx, dbos.EventLogEntry{
		Kind:      e.Kind,
		Message:   e.Message,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp,
	})
	if err != nil {
		return &dbosapi.LogEventResponse{Success: false, Error: errString(err)}, nil
	}
	return &dbosapi.LogEventResponse{Success: true}, nil
}

func (s *Server) GetEvents(ctx context.Context, req *dbosapi.GetEventsRequest) (*dbosapi.GetEventsResponse, error) {
	events, err := s.store.GetEvents(ctx, req.Limit)
	if err != nil {
		return &dbosapi.GetEventsResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.EventLogEntry, len(events))
	for i, e := range events {
		out[i] = &dbosapi.EventLogEntry{Kind: e.Kind, Message: e.Message, Metadata: e.Metadata, Timestamp: e.Timestamp}
	}
	return &dbosapi.GetEventsResponse{Events: out}, nil
}

func (s *Server) ListAllModuleStates(ctx context.Context, req *dbosapi.ListAllModuleStatesRequest) (*dbosapi.ListAllModuleStatesResponse, error) {
	states, err := s.store.ListAllModuleStates(ctx)
	if err != nil {
		return &dbosapi.ListAllModuleStatesResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.ModuleState, len(states))
	for i, st := range states {
		out[i] = toAPIModuleState(st)
	}
	return &dbosapi.ListAllModuleStatesResponse{States: out}, nil
}

func (s *Server) ListStaleNonTerminalStates(ctx context.Context, req *dbosapi.ListStaleNonTerminalStatesRequest) (*dbosapi.ListStaleNonTerminalStatesResponse, error) {
	states, err := s.store.ListStaleNonTerminalStates(ctx, req.Cutoff)
	if err != nil {
		return &dbosapi.ListStaleNonTerminalStatesResponse{Error: errString(err)}, nil
	}
	out := make([]*dbosapi.ModuleState, len(states))
	for i, st := range states {
		out[i] = toAPIModuleState(st)
	}
	return &dbosapi.ListStaleNonTerminalStatesResponse{States: out}, nil
}

func (s *Server) RequeueExpiredTasks(ctx context.Context, req *dbosapi.RequeueExpiredTasksRequest) (*dbosapi.RequeueExpiredTasksResponse, error) {
	n, err := s.store.RequeueExpiredTasks(ctx, req.Timestamp)
	if err != nil {
		return &dbosapi.RequeueExpiredTasksResponse{Error: errString(err)}, nil
	}
	return &dbosapi.RequeueExpiredTasksResponse{Count: n}, nil
}
