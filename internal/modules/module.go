package modules

import "context"

// Module is the contract every measurement module implements: a name, an
// input schema, and setup/handle behaviors. handle runs under the runtime's
// bounded-duration guard and its result is published to the module's out
// subject (a map result with the request id added, any other value under
// "result"), or its error to the error subject on failure.
type Module interface {
	Name() string
	Schema() Schema
	Setup(ctx context.Context) error
	Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error)
}

// Registry maps module names to their implementations. Modules are
// registered in code (see Default); nothing is loaded from a modules path.
type Registry struct {
	modules map[string]Module
}

// NewRegistry builds a Registry seeded with mods.
func NewRegistry(mods ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module, len(mods))}
	for _, m := range mods {
		r.modules[m.Name()] = m
	}
	return r
}

// Default returns the registry of built-in modules every agent loads:
// ping, tcping, the working (echo) module, the faulty module used to
// exercise crash isolation, and heartbeat.
func Default() *Registry {
	return NewRegistry(
		NewPingModule(),
		NewTCPingModule(),
		NewWorkingModule(),
		NewFaultyModule(),
		NewHeartbeatModule(),
	)
}

// Get returns the module registered under name, if any.
func (r *Registry) Get(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// All returns every registered module.
func (r *Registry) All() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	return out
}
