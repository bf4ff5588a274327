package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file at path and overlays it onto Default().
// A missing file is not an error: the defaults are returned unchanged, so a
// fresh deployment works with zero configuration, matching the teacher's
// "first run detected, creating defaults" posture in cmd/aleutian/config.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Keep the defaults; the project path function is still set below.
	case err != nil:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if cfg.ProjectPathFunc == nil {
		dir := cfg.ProjectDir
		cfg.ProjectPathFunc = func(projectKey string) string {
			return filepath.Join(dir, sanitizeProjectKey(projectKey)+".json")
		}
	}

	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// sanitizeProjectKey turns an arbitrary project path into a filename-safe
// token by replacing path separators. It is deliberately simple: project
// keys are operator-supplied, not attacker-controlled input.
func sanitizeProjectKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch r {
		case '/', '\\', ':', ' ':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "default"
	}
	return string(out)
}
