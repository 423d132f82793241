package dbos

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Arjun4522/internet-measurement-network/pkg/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(kv.NewFromClient(rdb))
}

func TestAgentRegisterAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := Agent{ID: "agent-1", Hostname: "probe-1", LastSeen: 100}
	if err := s.RegisterAgent(ctx, a); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	got, err := s.GetAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Hostname != "probe-1" {
		t.Fatalf("GetAgent.Hostname = %q, want probe-1", got.Hostname)
	}

	a.LastSeen = 200
	if err := s.RegisterAgent(ctx, a); err != nil {
		t.Fatalf("RegisterAgent (update): %v", err)
	}
	got, _ = s.GetAgent(ctx, "agent-1")
	if got.LastSeen != 200 {
		t.Fatalf("GetAgent.LastSeen = %d, want 200 (last writer wins)", got.LastSeen)
	}

	all, err := s.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListAgents returned %d agents, want 1", len(all))
	}
}

func TestModuleStateLegalTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := ModuleState{RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: StateCreated, Timestamp: 1}
	got, err := s.SetModuleState(ctx, created)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("initial version = %d, want 1", got.Version)
	}

	started := ModuleState{RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: StateStarted, Timestamp: 2}
	got, err = s.SetModuleState(ctx, started)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version after start = %d, want 2", got.Version)
	}

	completed := ModuleState{RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: StateCompleted, Timestamp: 3}
	if _, err := s.SetModuleState(ctx, completed); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// terminal state is a sink
	retry := ModuleState{RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: StateStarted, Timestamp: 4}
	if _, err := s.SetModuleState(ctx, retry); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transition out of terminal state err = %v, want ErrInvalidTransition", err)
	}
}

func TestModuleStateRejectsSkippedTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	direct := ModuleState{RequestID: "req-2", AgentID: "agent-1", ModuleName: "ping", State: StateRunning, Timestamp: 1}
	if _, err := s.SetModuleState(ctx, direct); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("(none) -> running err = %v, want ErrInvalidTransition", err)
	}
}

func TestModuleStateVersionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := ModuleState{RequestID: "req-3", AgentID: "agent-1", ModuleName: "ping", State: StateCreated, Timestamp: 1}
	if _, err := s.SetModuleState(ctx, created); err != nil {
		t.Fatalf("create: %v", err)
	}

	started := ModuleState{RequestID: "req-3", AgentID: "agent-1", ModuleName: "ping", State: StateStarted, Timestamp: 2}
	if _, err := s.SetModuleStateWithVersion(ctx, started, 99); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale version err = %v, want ErrVersionConflict", err)
	}
}

func TestStoreResultIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := MeasurementResult{ID: "res-1", AgentID: "agent-1", RequestID: "req-1", ModuleName: "ping", ReceivedAt: 10}
	if err := s.StoreResult(ctx, r); err != nil {
		t.Fatalf("first StoreResult: %v", err)
	}

	dup := r
	dup.ModuleName = "changed"
	if err := s.StoreResult(ctx, dup); err != nil {
		t.Fatalf("second StoreResult: %v", err)
	}

	got, err := s.GetResult(ctx, "agent-1", "req-1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.ModuleName != "ping" {
		t.Fatalf("GetResult.ModuleName = %q, want ping (dup rejected)", got.ModuleName)
	}
}

func TestResultListAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.StoreResult(ctx, MeasurementResult{ID: "r1", AgentID: "agent-1", RequestID: "req-1", ReceivedAt: 10})
	_ = s.StoreResult(ctx, MeasurementResult{ID: "r2", AgentID: "agent-1", RequestID: "req-2", ReceivedAt: 20})

	list, err := s.ListResults(ctx, "agent-1")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListResults returned %d, want 2", len(list))
	}

	if err := s.DeleteResult(ctx, "agent-1", "req-1"); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	if _, err := s.GetResult(ctx, "agent-1", "req-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetResult after delete err = %v, want ErrNotFound", err)
	}

	// dedup mark cleared, so the request can be stored again
	if err := s.StoreResult(ctx, MeasurementResult{ID: "r1b", AgentID: "agent-1", RequestID: "req-1", ReceivedAt: 30}); err != nil {
		t.Fatalf("StoreResult after delete: %v", err)
	}
}

func TestTaskVisibilityCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ScheduleTask(ctx, Task{ID: "task-1", AgentID: "agent-1", ScheduledAt: 100}); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}

	notDue, err := s.ClaimDueTasks(ctx, 50, 30)
	if err != nil {
		t.Fatalf("ClaimDueTasks (not due): %v", err)
	}
	if len(notDue) != 0 {
		t.Fatalf("ClaimDueTasks before scheduled time returned %d, want 0", len(notDue))
	}

	claimed, err := s.ClaimDueTasks(ctx, 100, 30)
	if err != nil {
		t.Fatalf("ClaimDueTasks: %v", err)
	}
	if len(claimed) != 1 || claimed[0].Status != TaskInFlight {
		t.Fatalf("ClaimDueTasks = %+v, want one in-flight task", claimed)
	}

	// not yet expired: no requeue
	moved, err := s.RequeueExpiredTasks(ctx, 110)
	if err != nil {
		t.Fatalf("RequeueExpiredTasks (early): %v", err)
	}
	if moved != 0 {
		t.Fatalf("RequeueExpiredTasks (early) moved %d, want 0", moved)
	}

	// past visibility deadline (100+30): requeued
	moved, err = s.RequeueExpiredTasks(ctx, 131)
	if err != nil {
		t.Fatalf("RequeueExpiredTasks: %v", err)
	}
	if moved != 1 {
		t.Fatalf("RequeueExpiredTasks moved %d, want 1", moved)
	}

	due, err := s.ListDueTasks(ctx, 200)
	if err != nil {
		t.Fatalf("ListDueTasks: %v", err)
	}
	if len(due) != 1 || due[0].Status != TaskPending {
		t.Fatalf("ListDueTasks = %+v, want one pending task", due)
	}
}

func TestTaskNackRetryAndDeadLetter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ScheduleTask(ctx, Task{ID: "task-1", AgentID: "agent-1", ScheduledAt: 0}); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}
	if _, err := s.ClaimDueTasks(ctx, 0, 30); err != nil {
		t.Fatalf("ClaimDueTasks: %v", err)
	}

	for i := 0; i < s.maxRetries; i++ {
		if err := s.NackTask(ctx, "task-1", 1, int64(i)); err != nil {
			t.Fatalf("NackTask #%d: %v", i, err)
		}
		if _, err := s.ClaimDueTasks(ctx, int64(i)+1, 30); err != nil {
			t.Fatalf("ClaimDueTasks after nack #%d: %v", i, err)
		}
	}

	// one more nack exceeds the ceiling and routes to dead-letter
	if err := s.NackTask(ctx, "task-1", 1, 999); err != nil {
		t.Fatalf("final NackTask: %v", err)
	}

	task, err := s.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != TaskFailed {
		t.Fatalf("task.Status = %q, want failed", task.Status)
	}
}

func TestTaskAck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ScheduleTask(ctx, Task{ID: "task-1", AgentID: "agent-1", ScheduledAt: 0}); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}
	if _, err := s.ClaimDueTasks(ctx, 0, 30); err != nil {
		t.Fatalf("ClaimDueTasks: %v", err)
	}
	if err := s.AckTask(ctx, "task-1"); err != nil {
		t.Fatalf("AckTask: %v", err)
	}
	if _, err := s.GetTask(ctx, "task-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTask after ack err = %v, want ErrNotFound", err)
	}
}

func TestEventLogOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		if err := s.LogEvent(ctx, EventLogEntry{Kind: "test", Message: msg}); err != nil {
			t.Fatalf("LogEvent(%s): %v", msg, err)
		}
	}

	events, err := s.GetEvents(ctx, 2)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 || events[0].Message != "third" || events[1].Message != "second" {
		t.Fatalf("GetEvents = %+v, want [third, second]", events)
	}
}
