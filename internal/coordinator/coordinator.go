// Package coordinator implements the control-plane coordinator: subject
// routing over the message bus, request-to-workflow mapping, per-request
// lifecycle tracking via DBOS, timeout and cancellation, and idempotent
// acceptance. Grounded in the teacher's orchestrator state machine (mutex
// map of active runs, Start/Close subscription lifecycle), generalized
// from provisioning-run correlation to request_id correlation.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Arjun4522/internet-measurement-network/internal/dbos"
	"github.com/Arjun4522/internet-measurement-network/pkg/bus"
)

// MaxOutstandingPerAgent bounds the number of concurrent synchronous awaits
// the coordinator will hold open for a single agent before rejecting new
// requests with a busy error.
const MaxOutstandingPerAgent = 64

// recoveryWindow bounds how long a module-state may sit in started/running
// before a restarting coordinator force-fails it.
const recoveryWindow = 2 * time.Minute

// Store is the subset of the durable state store the coordinator depends
// on. It is satisfied by both an in-process *dbos.Store and
// internal/dbosclient's gRPC-backed adapter, which is what a coordinator
// process actually wires in — spec's component design has the coordinator
// (C6) reach DBOS (C2) over its gRPC surface (C3), never embedding the
// store directly.
type Store interface {
	RegisterAgent(ctx context.Context, a dbos.Agent) error
	GetAgent(ctx context.Context, id string) (dbos.Agent, error)
	SetModuleState(ctx context.Context, next dbos.ModuleState) (dbos.ModuleState, error)
	GetModuleState(ctx context.Context, requestID string) (dbos.ModuleState, error)
	ListStaleNonTerminalStates(ctx context.Context, cutoff int64) ([]dbos.ModuleState, error)
	StoreResult(ctx context.Context, r dbos.MeasurementResult) error
	GetResult(ctx context.Context, agentID, requestID string) (dbos.MeasurementResult, error)
	RequeueExpiredTasks(ctx context.Context, now int64) (int, error)
	LogEvent(ctx context.Context, entry dbos.EventLogEntry) error
}

// Coordinator dispatches measurement requests to agents over the bus,
// tracks their lifecycle in DBOS, and resolves synchronous callers via a
// per-request_id rendezvous.
type Coordinator struct {
	store Store
	bus   *bus.Bus
	log   *log.Logger

	awaitMu   sync.Mutex
	awaiters  map[string]chan Outcome
	cancelled map[string]bool

	outstandingMu sync.Mutex
	outstanding   map[string]int

	subsMu sync.Mutex
	subs   []io.Closer
}

// New builds a Coordinator bound to store and bus. logger may be nil, in
// which case log.Default() is used.
func New(store Store, b *bus.Bus, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		store:       store,
		bus:         b,
		log:         logger,
		awaiters:    make(map[string]chan Outcome),
		cancelled:   make(map[string]bool),
		outstanding: make(map[string]int),
	}
}

// Start ensures the backing stream exists, then fans out the restart
// recovery sweep and every subject subscription (result/error consumers,
// the heartbeat consumer) via an errgroup so none of them wait on the
// others to come up.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.bus.EnsureStream(bus.StreamName, bus.Subjects()); err != nil {
		return fmt.Errorf("coordinator: ensure stream: %w", err)
	}

	specs := []struct {
		subject string
		durable string
		handler bus.Handler
	}{
		{"agent.*.out", "coordinator-out", c.handleOut},
		{"agent.*.error", "coordinator-error", c.handleError},
		{"agent.*.*.out", "coordinator-module-out", c.handleOut},
		{"agent.*.*.error", "coordinator-module-error", c.handleError},
		{bus.HeartbeatModuleSubject, "coordinator-heartbeat", c.handleHeartbeat},
		{"heartbeat.*", "coordinator-heartbeat-legacy", c.handleHeartbeat},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.recover(gctx); err != nil {
			c.log.Printf("[WARN] recovery sweep failed: %v", err)
		}
		return nil
	})
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			closer, err := c.bus.Subscribe(ctx, spec.subject, spec.durable, spec.handler)
			if err != nil {
				return fmt.Errorf("coordinator: subscribe %s: %w", spec.subject, err)
			}
			c.subsMu.Lock()
			c.subs = append(c.subs, closer)
			c.subsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.Close()
		return err
	}
	return nil
}

// Close tears down active subscriptions.
func (c *Coordinator) Close() error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	var firstErr error
	for _, sub := range c.subs {
		if sub == nil {
			continue
		}
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.subs = nil
	return firstErr
}

// recover scans DBOS for stale started/running states and force-fails them,
// then sweeps the task queue for orphaned in-flight entries.
func (c *Coordinator) recover(ctx context.Context) error {
	now := time.Now().Unix()

	stale, err := c.store.ListStaleNonTerminalStates(ctx, now-int64(recoveryWindow.Seconds()))
	if err != nil {
		return fmt.Errorf("scan stale module states: %w", err)
	}
	for _, st := range stale {
		if _, err := c.store.SetModuleState(ctx, dbos.ModuleState{
			RequestID:  st.RequestID,
			AgentID:    st.AgentID,
			ModuleName: st.ModuleName,
			State:      dbos.StateFailed,
			Timestamp:  now,
			Details:    map[string]string{"reason": "recovery_sweep"},
		}); err != nil {
			c.log.Printf("[WARN] recovery: force-fail %s: %v", st.RequestID, err)
			continue
		}
		c.logEvent(ctx, "recovery_forced_failure", st.RequestID, map[string]string{"agent_id": st.AgentID, "module": st.ModuleName})
	}

	if _, err := c.store.RequeueExpiredTasks(ctx, now); err != nil {
		return fmt.Errorf("requeue expired tasks: %w", err)
	}

	return nil
}

// Dispatch serves a synchronous caller: it mints or reuses a workflow,
// publishes the request, and blocks until the matching out/error message
// arrives or timeout elapses. It does not check payload against the
// module's schema; validation happens only at the agent.
func (c *Coordinator) Dispatch(ctx context.Context, agentID, moduleName string, payload json.RawMessage, requestID string, timeout time.Duration) (Outcome, error) {
	requestID, existing, alreadyInFlight, err := c.mintOrReuse(ctx, agentID, moduleName, requestID)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	if err := c.reserveSlot(agentID); err != nil {
		return Outcome{}, err
	}
	defer c.releaseSlot(agentID)

	// Share one rendezvous channel across every caller waiting on the same
	// request_id, so a reused in-flight workflow doesn't publish twice.
	c.awaitMu.Lock()
	ch, ok := c.awaiters[requestID]
	if !ok {
		ch = make(chan Outcome, 1)
		c.awaiters[requestID] = ch
	}
	c.awaitMu.Unlock()
	defer func() {
		c.awaitMu.Lock()
		if c.awaiters[requestID] == ch {
			delete(c.awaiters, requestID)
			delete(c.cancelled, requestID)
		}
		c.awaitMu.Unlock()
	}()

	if !alreadyInFlight {
		if err := c.publishRequest(ctx, agentID, moduleName, payload, requestID); err != nil {
			return Outcome{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case outcome := <-ch:
		return outcome, nil
	case <-ctx.Done():
		_, _ = c.store.SetModuleState(context.Background(), dbos.ModuleState{
			RequestID:  requestID,
			AgentID:    agentID,
			ModuleName: moduleName,
			State:      dbos.StateFailed,
			Timestamp:  time.Now().Unix(),
			Details:    map[string]string{"reason": "timeout"},
		})
		c.logEvent(context.Background(), "workflow_timeout", requestID, map[string]string{"agent_id": agentID, "module": moduleName})
		return Outcome{RequestID: requestID, State: dbos.StateFailed, Error: "timeout"}, nil
	}
}

// DispatchAsync runs steps 1-4 only, returning the workflow id immediately.
// Callers poll GetModuleState/GetResult by request id.
func (c *Coordinator) DispatchAsync(ctx context.Context, agentID, moduleName string, payload json.RawMessage, requestID string) (string, error) {
	requestID, existing, alreadyInFlight, err := c.mintOrReuse(ctx, agentID, moduleName, requestID)
	if err != nil {
		return "", err
	}
	if existing != nil || alreadyInFlight {
		return requestID, nil
	}
	if err := c.publishRequest(ctx, agentID, moduleName, payload, requestID); err != nil {
		return "", err
	}
	return requestID, nil
}

// mintOrReuse implements steps 2-3: it generates request_id if absent,
// returns the persisted outcome if the workflow is already terminal, and
// otherwise persists the created/started transitions for a brand new
// workflow. The alreadyInFlight return tells the caller a non-terminal
// workflow for requestID already exists, so it must not publish a second
// request — only await the existing one.
func (c *Coordinator) mintOrReuse(ctx context.Context, agentID, moduleName, requestID string) (id string, outcome *Outcome, alreadyInFlight bool, err error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	current, err := c.store.GetModuleState(ctx, requestID)
	if err == nil {
		st := current
		if st.IsTerminal() {
			out := Outcome{RequestID: requestID, State: st.State, Error: st.ErrorMessage}
			if st.State == dbos.StateCompleted {
				if result, rErr := c.store.GetResult(ctx, agentID, requestID); rErr == nil {
					out.Payload = result.Payload
				}
			}
			return requestID, &out, false, nil
		}
		// non-terminal: an identical in-flight workflow already exists.
		return requestID, nil, true, nil
	}
	if !errors.Is(err, dbos.ErrNotFound) {
		return "", nil, false, fmt.Errorf("coordinator: lookup module state: %w", err)
	}

	now := time.Now().Unix()
	if _, err := c.store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: requestID, AgentID: agentID, ModuleName: moduleName, State: dbos.StateCreated, Timestamp: now,
	}); err != nil {
		return "", nil, false, fmt.Errorf("coordinator: create module state: %w", err)
	}
	if _, err := c.store.SetModuleState(ctx, dbos.ModuleState{
		RequestID: requestID, AgentID: agentID, ModuleName: moduleName, State: dbos.StateStarted, Timestamp: now,
	}); err != nil {
		return "", nil, false, fmt.Errorf("coordinator: start module state: %w", err)
	}

	return requestID, nil, false, nil
}

func (c *Coordinator) publishRequest(ctx context.Context, agentID, moduleName string, payload json.RawMessage, requestID string) error {
	envelope := map[string]json.RawMessage{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return fmt.Errorf("coordinator: decode payload: %w", err)
		}
	}
	idBytes, _ := json.Marshal(requestID)
	envelope["id"] = idBytes

	subject := bus.AgentIn(agentID)
	if moduleName != "" {
		subject = bus.ModuleIn(agentID, moduleName)
	}

	headers := traceHeaders(ctx)
	if err := c.bus.PublishWithHeaders(ctx, subject, envelope, headers); err != nil {
		return fmt.Errorf("coordinator: publish request: %w", err)
	}
	return nil
}

// Cancel implements workflow cancellation: it force-writes a failed state
// with a cancelled marker, so any subsequent out/error message for
// request_id is discarded by handleOut/handleError.
func (c *Coordinator) Cancel(ctx context.Context, requestID string) error {
	current, err := c.store.GetModuleState(ctx, requestID)
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		return nil
	}

	c.awaitMu.Lock()
	c.cancelled[requestID] = true
	c.awaitMu.Unlock()

	_, err = c.store.SetModuleState(ctx, dbos.ModuleState{
		RequestID:  requestID,
		AgentID:    current.AgentID,
		ModuleName: current.ModuleName,
		State:      dbos.StateFailed,
		Timestamp:  time.Now().Unix(),
		Details:    map[string]string{"cancelled": "true"},
	})
	return err
}

func (c *Coordinator) reserveSlot(agentID string) error {
	c.outstandingMu.Lock()
	defer c.outstandingMu.Unlock()
	if c.outstanding[agentID] >= MaxOutstandingPerAgent {
		return &busyError{agentID: agentID}
	}
	c.outstanding[agentID]++
	return nil
}

func (c *Coordinator) releaseSlot(agentID string) {
	c.outstandingMu.Lock()
	defer c.outstandingMu.Unlock()
	if c.outstanding[agentID] > 0 {
		c.outstanding[agentID]--
	}
}

func (c *Coordinator) logEvent(ctx context.Context, kind, requestID string, metadata map[string]string) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["request_id"] = requestID
	if err := c.store.LogEvent(ctx, dbos.EventLogEntry{
		Kind: kind, Message: kind, Metadata: metadata, Timestamp: time.Now().Unix(),
	}); err != nil {
		c.log.Printf("[WARN] log event %s: %v", kind, err)
	}
}

func traceHeaders(ctx context.Context) map[string]string {
	// A real deployment propagates the active span's trace-context fields
	// here; the coordinator carries whatever the caller attached to ctx
	// under this key so the REST layer can thread otelhttp's injected
	// headers through without this package importing otel directly.
	if v := ctx.Value(traceHeadersKey{}); v != nil {
		if headers, ok := v.(map[string]string); ok {
			return headers
		}
	}
	return nil
}

type traceHeadersKey struct{}

// WithTraceHeaders attaches propagation headers to ctx so Dispatch/
// DispatchAsync forward them on the outbound bus publish. The REST
// handlers do not call it, so their dispatches carry no trace headers.
func WithTraceHeaders(ctx context.Context, headers map[string]string) context.Context {
	return context.WithValue(ctx, traceHeadersKey{}, headers)
}
