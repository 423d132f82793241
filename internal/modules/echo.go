package modules

import (
	"context"
	"time"
)

// WorkingModule echoes the request payload back with processing metadata,
// grounded on original_source's minimal echo/working module used to prove
// the pipeline end to end.
type WorkingModule struct{}

// NewWorkingModule constructs the built-in echo module.
func NewWorkingModule() *WorkingModule { return &WorkingModule{} }

func (m *WorkingModule) Name() string { return "working_module" }

func (m *WorkingModule) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "message", Type: FieldString, Default: ""},
	}}
}

func (m *WorkingModule) Setup(ctx context.Context) error { return nil }

func (m *WorkingModule) Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error) {
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out["processed_at"] = time.Now().Unix()
	out["from_module"] = m.Name()
	return out, nil
}
