package dbosserver

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
	"github.com/Arjun4522/internet-measurement-network/pkg/kv"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(dbos.New(kv.NewFromClient(rdb)))
}

func TestRegisterAndGetAgent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	regResp, err := s.RegisterAgent(ctx, &dbosapi.RegisterAgentRequest{
		Agent: &dbosapi.Agent{ID: "agent-1", Hostname: "probe-1", LastSeen: 100},
	})
	if err != nil || !regResp.Success {
		t.Fatalf("RegisterAgent = %+v, %v, want success", regResp, err)
	}

	getResp, err := s.GetAgent(ctx, &dbosapi.GetAgentRequest{AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if !getResp.Found || getResp.Agent.Hostname != "probe-1" {
		t.Fatalf("GetAgent = %+v, want found probe-1", getResp)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.GetAgent(context.Background(), &dbosapi.GetAgentRequest{AgentID: "missing"})
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if resp.Found {
		t.Fatalf("GetAgent.Found = true, want false")
	}
}

func TestSetModuleStateRejectsIllegalTransition(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.SetModuleState(ctx, &dbosapi.SetModuleStateRequest{
		State: &dbosapi.ModuleState{RequestID: "req-1", AgentID: "a1", ModuleName: "ping", State: dbos.StateRunning, Timestamp: 1},
	})
	if err != nil {
		t.Fatalf("SetModuleState transport error: %v", err)
	}
	if resp.Success {
		t.Fatalf("SetModuleState on (none)->running = success, want failure")
	}
}

func TestStoreAndGetResult(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	storeResp, err := s.StoreResult(ctx, &dbosapi.StoreResultRequest{
		Result: &dbosapi.MeasurementResult{ID: "r1", AgentID: "a1", RequestID: "req-1", ModuleName: "ping", ReceivedAt: 10},
	})
	if err != nil || !storeResp.Success {
		t.Fatalf("StoreResult = %+v, %v, want success", storeResp, err)
	}

	getResp, err := s.GetResult(ctx, &dbosapi.GetResultRequest{AgentID: "a1", RequestID: "req-1"})
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if !getResp.Found || getResp.Result.ModuleName != "ping" {
		t.Fatalf("GetResult = %+v, want found ping", getResp)
	}
}

func TestTaskLifecycleThroughServer(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, err := s.ScheduleTask(ctx, &dbosapi.ScheduleTaskRequest{
		Task: &dbosapi.Task{ID: "task-1", AgentID: "a1", ScheduledAt: 0},
	}); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}

	claimResp, err := s.ClaimDueTasks(ctx, &dbosapi.ClaimDueTasksRequest{Timestamp: 0, VisibilityTimeout: 30})
	if err != nil {
		t.Fatalf("ClaimDueTasks: %v", err)
	}
	if len(claimResp.Tasks) != 1 {
		t.Fatalf("ClaimDueTasks returned %d tasks, want 1", len(claimResp.Tasks))
	}

	ackResp, err := s.AckTask(ctx, &dbosapi.AckTaskRequest{TaskID: "task-1"})
	if err != nil || !ackResp.Success {
		t.Fatalf("AckTask = %+v, %v, want success", ackResp, err)
	}
}

func TestLogAndGetEvents(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, err := s.LogEvent(ctx, &dbosapi.LogEventRequest{Entry: &dbosapi.EventLogEntry{Kind: "test", Message: "hello"}}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	resp, err := s.GetEvents(ctx, &dbosapi.GetEventsRequest{Limit: 10})
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Message != "hello" {
		t.Fatalf("GetEvents = %+v, want one hello event", resp.Events)
	}
}
