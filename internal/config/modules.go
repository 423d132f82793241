package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleDefaults overrides a module's schema defaults, keyed by module
// name then field name. An agent operator uses this to retune a module
// (e.g. ping_module's default port or count) without touching code.
type ModuleDefaults map[string]map[string]any

// LoadModuleDefaults reads an optional YAML override file of the shape:
//
//	ping_module:
//	  count: 5
//	  port: 443
//
// An empty path or a missing file is not an error; it yields an empty
// ModuleDefaults so the agent runs with every module's built-in defaults.
func LoadModuleDefaults(path string) (ModuleDefaults, error) {
	if path == "" {
		return ModuleDefaults{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ModuleDefaults{}, nil
		}
		return nil, fmt.Errorf("read module defaults: %w", err)
	}

	var defaults ModuleDefaults
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("parse module defaults: %w", err)
	}
	if defaults == nil {
		defaults = ModuleDefaults{}
	}
	return defaults, nil
}
