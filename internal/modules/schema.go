// Package modules implements the built-in measurement modules an agent
// loads at boot: ping, tcping, an echo/working module, a faulty module for
// exercising crash isolation, and the heartbeat module. Each declares a
// schema validated before its handler ever runs, per the agent runtime's
// module contract.
package modules

import (
	"fmt"
)

// FieldType names one of the primitive types a schema field accepts.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
)

// Field describes one input field a module expects, with an optional
// default applied when the caller omits it.
type Field struct {
	Name     string    `yaml:"name"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Default  any       `yaml:"default,omitempty"`
}

// Schema is a module's declarative input contract.
type Schema struct {
	Fields []Field `yaml:"fields"`
}

// Validate checks payload against every field: required fields must be
// present, present fields must match their declared type, and missing
// optional fields are filled from Default. It returns a new map; the
// caller's payload is left untouched.
func (s Schema) Validate(payload map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}

	for _, f := range s.Fields {
		v, present := out[f.Name]
		if !present {
			if f.Required {
				return nil, fmt.Errorf("modules: missing required field %q", f.Name)
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		if err := checkType(f.Name, f.Type, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkType(name string, t FieldType, v any) error {
	switch t {
	case FieldString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("modules: field %q must be a string", name)
		}
	case FieldInt:
		switch v.(type) {
		case int, int32, int64, float64:
		default:
			return fmt.Errorf("modules: field %q must be an integer", name)
		}
	case FieldFloat:
		switch v.(type) {
		case float32, float64, int, int64:
		default:
			return fmt.Errorf("modules: field %q must be a number", name)
		}
	case FieldBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("modules: field %q must be a boolean", name)
		}
	default:
		return fmt.Errorf("modules: field %q has unknown type %q", name, t)
	}
	return nil
}

// Int extracts payload[key] as an int, applying def when absent, and
// tolerating the float64 shape json.Unmarshal produces for numeric fields.
func Int(payload map[string]any, key string, def int) int {
	v, ok := payload[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return def
	}
}

// String extracts payload[key] as a string, applying def when absent.
func String(payload map[string]any, key, def string) string {
	v, ok := payload[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Bool extracts payload[key] as a bool, applying def when absent.
func Bool(payload map[string]any, key string, def bool) bool {
	v, ok := payload[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
