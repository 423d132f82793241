// Package agentrt implements the measurement agent's runtime: it loads
// modules, runs one worker loop per module subscription, emits periodic
// heartbeats, and reports module-state transitions: the running state is
// written to the durable store directly (over the dbosapi gRPC client),
// and every state, terminal ones included, is announced via the
// agent.module.state broadcast, the way the coordinator's own
// subscription lifecycle is grounded in the teacher's orchestrator.
package agentrt

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Arjun4522/internet-measurement-network/internal/config"
	"github.com/Arjun4522/internet-measurement-network/internal/modules"
	"github.com/Arjun4522/internet-measurement-network/pkg/bus"
	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
)

// defaultHandleTimeout bounds how long a single module invocation may run
// before the worker loop gives up and reports a failure, so one wedged
// module can never starve its own subscription.
const defaultHandleTimeout = 30 * time.Second

// Runtime hosts a registry of modules, subscribing each to its input
// subject and reporting heartbeats on a ticker.
type Runtime struct {
	bus       *bus.Bus
	dbos      dbosapi.DBOSClient
	registry  *modules.Registry
	log       *log.Logger
	agentID   string
	hostname  string
	firstSeen int64

	heartbeatInterval time.Duration
	handleTimeout     time.Duration
	moduleDefaults    config.ModuleDefaults

	totalHeartbeatsMu sync.Mutex
	totalHeartbeats   int64

	subsMu sync.Mutex
	subs   []io.Closer
}

// Option configures optional Runtime fields.
type Option func(*Runtime)

// WithHandleTimeout overrides the bounded-duration guard applied to every
// module invocation.
func WithHandleTimeout(d time.Duration) Option {
	return func(r *Runtime) { r.handleTimeout = d }
}

// WithLogger overrides the runtime's logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runtime) { r.log = logger }
}

// WithModuleDefaults supplies per-module field-default overrides read from
// an operator's YAML configuration file, applied before schema validation
// on every incoming message.
func WithModuleDefaults(defaults config.ModuleDefaults) Option {
	return func(r *Runtime) { r.moduleDefaults = defaults }
}

// New builds a Runtime for agentID, hosting every module in registry over
// b, reporting state transitions through dbosClient.
func New(agentID string, b *bus.Bus, dbosClient dbosapi.DBOSClient, registry *modules.Registry, heartbeatInterval time.Duration, opts ...Option) *Runtime {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	r := &Runtime{
		bus:               b,
		dbos:              dbosClient,
		registry:          registry,
		log:               log.Default(),
		agentID:           agentID,
		hostname:          hostname,
		firstSeen:         time.Now().Unix(),
		heartbeatInterval: heartbeatInterval,
		handleTimeout:     defaultHandleTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run subscribes every module to its per-module input subject (the
// coordinator always dispatches through agent.{id}.{module}.in, since the
// REST surface always names a module) and emits heartbeats until ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.bus.EnsureStream(bus.StreamName, bus.Subjects()); err != nil {
		return fmt.Errorf("agentrt: ensure stream: %w", err)
	}

	for _, m := range r.registry.All() {
		m := m
		if err := m.Setup(ctx); err != nil {
			return fmt.Errorf("agentrt: setup module %s: %w", m.Name(), err)
		}

		subject := bus.ModuleIn(r.agentID, m.Name())
		durable := "agent-" + r.agentID + "-" + m.Name()
		closer, err := r.bus.Subscribe(ctx, subject, durable, r.workerHandler(m))
		if err != nil {
			r.Close()
			return fmt.Errorf("agentrt: subscribe %s: %w", subject, err)
		}
		r.subsMu.Lock()
		r.subs = append(r.subs, closer)
		r.subsMu.Unlock()
	}

	r.runHeartbeatLoop(ctx)
	return nil
}

// Close tears down every active subscription.
func (r *Runtime) Close() error {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	var firstErr error
	for _, sub := range r.subs {
		if sub == nil {
			continue
		}
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.subs = nil
	return firstErr
}
