package coordinator

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/kv"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := dbos.New(kv.NewFromClient(rdb))
	return New(store, nil, nil)
}

func TestMintOrReuseCreatesNewWorkflow(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	requestID, outcome, inFlight, err := c.mintOrReuse(ctx, "agent-1", "ping", "")
	if err != nil {
		t.Fatalf("mintOrReuse: %v", err)
	}
	if requestID == "" {
		t.Fatalf("mintOrReuse returned empty request id")
	}
	if outcome != nil {
		t.Fatalf("mintOrReuse outcome = %+v, want nil for fresh workflow", outcome)
	}
	if inFlight {
		t.Fatalf("mintOrReuse inFlight = true, want false for fresh workflow")
	}

	st, err := c.store.GetModuleState(ctx, requestID)
	if err != nil {
		t.Fatalf("GetModuleState: %v", err)
	}
	if st.State != dbos.StateStarted {
		t.Fatalf("state = %q, want started", st.State)
	}
}

func TestMintOrReuseReturnsTerminalOutcome(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	requestID, _, _, err := c.mintOrReuse(ctx, "agent-1", "ping", "req-1")
	if err != nil {
		t.Fatalf("mintOrReuse: %v", err)
	}
	if _, err := c.store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: requestID, AgentID: "agent-1", ModuleName: "ping", State: dbos.StateCompleted, Timestamp: 1,
	}); err != nil {
		t.Fatalf("SetModuleState complete: %v", err)
	}

	_, outcome, inFlight, err := c.mintOrReuse(ctx, "agent-1", "ping", requestID)
	if err != nil {
		t.Fatalf("mintOrReuse (terminal): %v", err)
	}
	if outcome == nil || outcome.State != dbos.StateCompleted {
		t.Fatalf("mintOrReuse outcome = %+v, want completed", outcome)
	}
	if inFlight {
		t.Fatalf("mintOrReuse inFlight = true, want false for terminal workflow")
	}
}

func TestMintOrReuseNonTerminalDoesNotRestart(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	requestID, _, _, err := c.mintOrReuse(ctx, "agent-1", "ping", "req-2")
	if err != nil {
		t.Fatalf("mintOrReuse: %v", err)
	}

	_, outcome, inFlight, err := c.mintOrReuse(ctx, "agent-1", "ping", requestID)
	if err != nil {
		t.Fatalf("mintOrReuse (in-flight): %v", err)
	}
	if outcome != nil {
		t.Fatalf("mintOrReuse outcome = %+v, want nil (still in flight)", outcome)
	}
	if !inFlight {
		t.Fatalf("mintOrReuse inFlight = false, want true for reused non-terminal workflow")
	}

	st, _ := c.store.GetModuleState(ctx, requestID)
	if st.Version != 2 {
		t.Fatalf("version = %d, want 2 (created+started only, no restart)", st.Version)
	}
}

func TestReserveSlotBound(t *testing.T) {
	c := newTestCoordinator(t)

	for i := 0; i < MaxOutstandingPerAgent; i++ {
		if err := c.reserveSlot("agent-1"); err != nil {
			t.Fatalf("reserveSlot #%d: %v", i, err)
		}
	}

	if err := c.reserveSlot("agent-1"); !IsBusy(err) {
		t.Fatalf("reserveSlot over bound err = %v, want busy", err)
	}

	c.releaseSlot("agent-1")
	if err := c.reserveSlot("agent-1"); err != nil {
		t.Fatalf("reserveSlot after release: %v", err)
	}
}

func TestResolveDeliversToAwaiter(t *testing.T) {
	c := newTestCoordinator(t)

	ch := make(chan Outcome, 1)
	c.awaitMu.Lock()
	c.awaiters["req-1"] = ch
	c.awaitMu.Unlock()

	c.resolve("req-1", Outcome{RequestID: "req-1", State: dbos.StateCompleted})

	select {
	case out := <-ch:
		if out.State != dbos.StateCompleted {
			t.Fatalf("delivered outcome = %+v, want completed", out)
		}
	default:
		t.Fatalf("resolve did not deliver to awaiter channel")
	}
}

func TestCancelMarksCancelledAndFails(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	requestID, _, _, err := c.mintOrReuse(ctx, "agent-1", "ping", "req-3")
	if err != nil {
		t.Fatalf("mintOrReuse: %v", err)
	}

	if err := c.Cancel(ctx, requestID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	st, err := c.store.GetModuleState(ctx, requestID)
	if err != nil {
		t.Fatalf("GetModuleState: %v", err)
	}
	if st.State != dbos.StateFailed {
		t.Fatalf("state after cancel = %q, want failed", st.State)
	}
	if !c.isCancelled(requestID) {
		t.Fatalf("isCancelled = false, want true")
	}
}
