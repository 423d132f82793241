package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Arjun4522/internet-measurement-network/internal/coordinator"
	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/kv"
)

func newCtx() context.Context { return context.Background() }

func newTestRouter(t *testing.T) (http.Handler, *dbos.Store, *coordinator.Coordinator) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := dbos.New(kv.NewFromClient(rdb))
	coord := coordinator.New(store, nil, nil)

	api, err := New(store, coord, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler, err := api.Routes(nil)
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}
	return handler, store, coord
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestListAgentsAndGetAgent(t *testing.T) {
	handler, store, _ := newTestRouter(t)
	ctx := newCtx()

	if err := store.RegisterAgent(ctx, dbos.Agent{ID: "agent-1", Hostname: "host-1", LastSeen: 1}); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/agents/agent-1", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/agents/missing", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDispatchSyncReusesTerminalOutcomeWithoutPublishing(t *testing.T) {
	handler, store, _ := newTestRouter(t)
	ctx := newCtx()

	if _, err := store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: dbos.StateCreated, Timestamp: 1,
	}); err != nil {
		t.Fatalf("SetModuleState created: %v", err)
	}
	if _, err := store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: dbos.StateStarted, Timestamp: 2,
	}); err != nil {
		t.Fatalf("SetModuleState started: %v", err)
	}
	if _, err := store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: "req-1", AgentID: "agent-1", ModuleName: "ping", State: dbos.StateCompleted, Timestamp: 3,
	}); err != nil {
		t.Fatalf("SetModuleState completed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/agent/agent-1/ping?request_id=req-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["state"] != dbos.StateCompleted {
		t.Fatalf("state = %v, want completed (already-terminal workflow reused, no publish attempted)", body["state"])
	}
}

func TestWorkflowLifecycleEndpoints(t *testing.T) {
	handler, store, _ := newTestRouter(t)
	ctx := newCtx()

	if _, err := store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: "req-2", AgentID: "agent-1", ModuleName: "ping", State: dbos.StateCreated, Timestamp: 1,
	}); err != nil {
		t.Fatalf("SetModuleState: %v", err)
	}
	if _, err := store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: "req-2", AgentID: "agent-1", ModuleName: "ping", State: dbos.StateStarted, Timestamp: 2,
	}); err != nil {
		t.Fatalf("SetModuleState started: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/workflows/req-2", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /workflows/req-2 status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/workflows/req-2/cancel", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST cancel status = %d, want 200", w.Code)
	}

	st, err := store.GetModuleState(ctx, "req-2")
	if err != nil {
		t.Fatalf("GetModuleState: %v", err)
	}
	if st.State != dbos.StateFailed {
		t.Fatalf("state after cancel = %q, want failed", st.State)
	}
}

func TestListEventsRespectsLimit(t *testing.T) {
	handler, store, _ := newTestRouter(t)
	ctx := newCtx()

	for i := 0; i < 5; i++ {
		if err := store.LogEvent(ctx, dbos.EventLogEntry{Kind: "test", Message: "m", Timestamp: int64(i)}); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/events?limit=2", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Events []dbos.EventLogEntry `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(body.Events))
	}
}
