package modules

import "testing"

func TestSchemaValidateAppliesDefaults(t *testing.T) {
	s := Schema{Fields: []Field{
		{Name: "target", Type: FieldString, Required: true},
		{Name: "count", Type: FieldInt, Default: 3},
	}}

	out, err := s.Validate(map[string]any{"target": "example.com"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if out["count"] != 3 {
		t.Fatalf("count = %v, want default 3", out["count"])
	}
	if out["target"] != "example.com" {
		t.Fatalf("target = %v, want example.com", out["target"])
	}
}

func TestSchemaValidateMissingRequired(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "target", Type: FieldString, Required: true}}}
	if _, err := s.Validate(map[string]any{}); err == nil {
		t.Fatal("Validate() error = nil, want error for missing required field")
	}
}

func TestSchemaValidateWrongType(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "count", Type: FieldInt}}}
	if _, err := s.Validate(map[string]any{"count": "not a number"}); err == nil {
		t.Fatal("Validate() error = nil, want type error")
	}
}

func TestSchemaValidateDoesNotMutateInput(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "count", Type: FieldInt, Default: 3}}}
	in := map[string]any{}
	if _, err := s.Validate(in); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, present := in["count"]; present {
		t.Fatal("Validate() mutated caller's payload")
	}
}

func TestIntStringBoolHelpers(t *testing.T) {
	payload := map[string]any{"n": float64(5), "s": "hi", "b": true}

	if got := Int(payload, "n", 0); got != 5 {
		t.Fatalf("Int() = %d, want 5", got)
	}
	if got := Int(payload, "missing", 7); got != 7 {
		t.Fatalf("Int() default = %d, want 7", got)
	}
	if got := String(payload, "s", ""); got != "hi" {
		t.Fatalf("String() = %q, want hi", got)
	}
	if got := Bool(payload, "b", false); got != true {
		t.Fatalf("Bool() = %v, want true", got)
	}
}
