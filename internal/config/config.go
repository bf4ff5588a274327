// Package config defines the Store's tunables and loads them from a YAML
// file. Unlike the teacher's cmd/aleutian/config package, there is no
// process-wide Global singleton here: spec §9 explicitly calls for
// dependency injection of the store, and that starts with injecting its
// configuration rather than reading a package-level variable.
package config

import "time"

// Config holds every tunable named in spec §6.
type Config struct {
	// MaxTokens is the live-graph token budget the compactor targets.
	MaxTokens int `yaml:"max_tokens"`

	// GracePeriodDays is the minimum age, in days, of a node's last write
	// before the compactor may consider it for archival.
	GracePeriodDays int `yaml:"grace_period_days"`

	// OrphanGraceDays is the minimum continuous time, in days, an archived
	// node may be unreachable before the pruner deletes it.
	OrphanGraceDays int `yaml:"orphan_grace_days"`

	// SaveIntervalSeconds is how often the maintenance loop wakes.
	SaveIntervalSeconds int `yaml:"save_interval_seconds"`

	// SessionTTLSeconds is how long a registered session ID stays valid.
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`

	// UserPath is the JSON file backing the shared "user" level.
	UserPath string `yaml:"user_path"`

	// ProjectPathFunc maps a project key (as supplied by a session) to its
	// JSON file. In the single-project variant this always returns the
	// same path. Not serialized; set by the embedder.
	ProjectPathFunc func(projectKey string) string `yaml:"-"`

	// ProjectDir is used by the default ProjectPathFunc to lay out
	// per-project files as ProjectDir/<sanitized-key>.json.
	ProjectDir string `yaml:"project_dir"`

	// GCSBucket, if set, enables best-effort offsite upload of the weekly
	// backup tier (see SPEC_FULL.md §4.9). Empty disables the feature.
	GCSBucket string `yaml:"gcs_bucket"`
}

// GracePeriod returns GracePeriodDays as a time.Duration.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodDays) * 24 * time.Hour
}

// OrphanGrace returns OrphanGraceDays as a time.Duration.
func (c Config) OrphanGrace() time.Duration {
	return time.Duration(c.OrphanGraceDays) * 24 * time.Hour
}

// SaveInterval returns SaveIntervalSeconds as a time.Duration.
func (c Config) SaveInterval() time.Duration {
	return time.Duration(c.SaveIntervalSeconds) * time.Second
}

// SessionTTL returns SessionTTLSeconds as a time.Duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// Default returns the configuration named in spec §6.
func Default() Config {
	return Config{
		MaxTokens:           5000,
		GracePeriodDays:     7,
		OrphanGraceDays:     7,
		SaveIntervalSeconds: 30,
		SessionTTLSeconds:   86400,
		UserPath:            "user.json",
		ProjectDir:          "projects",
	}
}
