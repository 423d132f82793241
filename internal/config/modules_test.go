package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadModuleDefaultsEmptyPath(t *testing.T) {
	defaults, err := LoadModuleDefaults("")
	if err != nil {
		t.Fatalf("LoadModuleDefaults() error = %v", err)
	}
	if len(defaults) != 0 {
		t.Fatalf("LoadModuleDefaults() = %v, want empty", defaults)
	}
}

func TestLoadModuleDefaultsMissingFile(t *testing.T) {
	defaults, err := LoadModuleDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadModuleDefaults() error = %v", err)
	}
	if len(defaults) != 0 {
		t.Fatalf("LoadModuleDefaults() = %v, want empty", defaults)
	}
}

func TestLoadModuleDefaultsParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	content := "ping_module:\n  count: 5\n  port: 443\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	defaults, err := LoadModuleDefaults(path)
	if err != nil {
		t.Fatalf("LoadModuleDefaults() error = %v", err)
	}
	if defaults["ping_module"]["count"] != 5 {
		t.Fatalf("count = %v, want 5", defaults["ping_module"]["count"])
	}
	if defaults["ping_module"]["port"] != 443 {
		t.Fatalf("port = %v, want 443", defaults["ping_module"]["port"])
	}
}
