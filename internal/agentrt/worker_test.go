package agentrt

import (
	"context"
	"testing"
	"time"

	"github.com/Arjun4522/internet-measurement-network/internal/config"
	"github.com/Arjun4522/internet-measurement-network/internal/modules"
)

func newRuntime(t *testing.T, reg *modules.Registry) *Runtime {
	t.Helper()
	return New("agent-1", nil, nil, reg, 2*time.Second, WithHandleTimeout(200*time.Millisecond))
}

// panicModule's Handle always panics; faulty_module's crash flag returns an
// ordinary error instead, so it cannot drive invoke's recover path.
type panicModule struct{}

func (panicModule) Name() string { return "panic_module" }

func (panicModule) Schema() modules.Schema { return modules.Schema{} }

func (panicModule) Setup(ctx context.Context) error { return nil }

func (panicModule) Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error) {
	panic("boom")
}

func TestInvokeRecoversFromPanic(t *testing.T) {
	r := newRuntime(t, modules.Default())
	result, crashed, err := r.invoke(context.Background(), panicModule{}, map[string]any{}, nil)
	if !crashed {
		t.Fatal("invoke() crashed = false, want true")
	}
	if err == nil {
		t.Fatal("invoke() error = nil, want panic error")
	}
	if result != nil {
		t.Fatalf("invoke() result = %v, want nil", result)
	}
}

func TestInvokeRespectsTimeout(t *testing.T) {
	r := newRuntime(t, modules.Default())
	_, crashed, err := r.invoke(context.Background(), modules.NewFaultyModule(), map[string]any{"delay": 5.0}, nil)
	if crashed {
		t.Fatal("invoke() crashed = true, want false for a timeout")
	}
	if err == nil {
		t.Fatal("invoke() error = nil, want deadline error")
	}
}

func TestInvokeSucceeds(t *testing.T) {
	r := newRuntime(t, modules.Default())
	result, crashed, err := r.invoke(context.Background(), modules.NewWorkingModule(), map[string]any{"message": "hi"}, nil)
	if err != nil || crashed {
		t.Fatalf("invoke() = (%v, %v, %v), want success", result, crashed, err)
	}
	out, ok := result.(map[string]any)
	if !ok || out["message"] != "hi" {
		t.Fatalf("invoke() result = %v, want message echoed", result)
	}
}

func TestDBOSStateMapsCrashToFailed(t *testing.T) {
	if got := dbosState(true); got != stateFailed {
		t.Fatalf("dbosState(true) = %q, want %q", got, stateFailed)
	}
	if got := dbosState(false); got != stateError {
		t.Fatalf("dbosState(false) = %q, want %q", got, stateError)
	}
}

// Both cases route through a nil *bus.Bus and a nil dbosapi.DBOSClient;
// workerHandler's publish/state-report calls must tolerate that (logging
// a warning) rather than panicking, since these tests only exercise the
// validate/invoke decision path.

func TestWorkerHandlerValidationFailureDoesNotInvokeHandle(t *testing.T) {
	r := newRuntime(t, modules.Default())
	// tcping requires port, so this payload fails schema validation.
	handler := r.workerHandler(modules.NewTCPingModule())

	if err := handler(context.Background(), []byte(`{"id":"req-1"}`), nil); err != nil {
		t.Fatalf("workerHandler() error = %v, want nil (ack, not redeliver)", err)
	}
}

func TestWorkerHandlerSucceedsOnValidPayload(t *testing.T) {
	r := newRuntime(t, modules.Default())
	handler := r.workerHandler(modules.NewWorkingModule())

	if err := handler(context.Background(), []byte(`{"id":"req-2","message":"hello"}`), nil); err != nil {
		t.Fatalf("workerHandler() error = %v", err)
	}
}

// TestWorkerHandlerAppliesModuleDefaults exercises the YAML-configured
// default override path: ping_module's target defaults to "", so a bare
// message leaves Handle with no host to probe; an operator override
// supplying target (plus count and port) fills that in.
func TestWorkerHandlerAppliesModuleDefaults(t *testing.T) {
	r := New("agent-1", nil, nil, modules.Default(), 2*time.Second,
		WithHandleTimeout(200*time.Millisecond),
		WithModuleDefaults(config.ModuleDefaults{"ping_module": {"target": "127.0.0.1", "count": 1, "port": 1}}))

	handler := r.workerHandler(modules.NewPingModule())
	if err := handler(context.Background(), []byte(`{"id":"req-3"}`), nil); err != nil {
		t.Fatalf("workerHandler() error = %v", err)
	}
}
