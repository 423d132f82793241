package modules

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FaultyModule simulates delay, crash, and duplicate delivery, letting the
// coordinator and runtime's crash-isolation and idempotency paths be
// exercised deliberately, grounded on original_source's test module of the
// same name.
type FaultyModule struct {
	mu        sync.Mutex
	processed map[string]bool
}

// NewFaultyModule constructs the built-in faulty test module.
func NewFaultyModule() *FaultyModule {
	return &FaultyModule{processed: make(map[string]bool)}
}

func (m *FaultyModule) Name() string { return "faulty_module" }

func (m *FaultyModule) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "message", Type: FieldString, Required: true},
		{Name: "id", Type: FieldString, Default: ""},
		{Name: "delay", Type: FieldFloat, Default: 0.0},
		{Name: "crash", Type: FieldBool, Default: false},
	}}
}

func (m *FaultyModule) Setup(ctx context.Context) error { return nil }

func (m *FaultyModule) Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error) {
	if delay := payload["delay"]; delay != nil {
		if seconds, ok := delay.(float64); ok && seconds > 0 {
			select {
			case <-time.After(time.Duration(seconds * float64(time.Second))):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if crash := payload["crash"]; crash != nil {
		if b, ok := crash.(bool); ok && b {
			return nil, fmt.Errorf("faulty_module: intentional crash triggered")
		}
	}

	id := String(payload, "id", "")
	if id != "" {
		m.mu.Lock()
		duplicate := m.processed[id]
		m.processed[id] = true
		m.mu.Unlock()
		if duplicate {
			return nil, fmt.Errorf("faulty_module: duplicate message ignored: %s", id)
		}
	}

	return map[string]any{
		"from_module":  m.Name(),
		"message":      String(payload, "message", ""),
		"processed_at": time.Now().Unix(),
		"input":        payload,
	}, nil
}
