// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"printdrop/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and a single permissive rule.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WatchDir = filepath.Join(base, "watch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Rules = []config.RuleConfig{
		{
			Pattern:     `^doc_(?P<id>\d+)\.pdf$`,
			Destination: filepath.Join(base, "archive", "{id}"),
			Print:       false,
		},
	}
	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithRules replaces the rule list on the test config.
func WithRules(rules ...config.RuleConfig) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Rules = rules
	}
}

// WithDedupWindow sets the dedup suppression window in seconds.
func WithDedupWindow(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Watch.DedupWindowSeconds = seconds
	}
}

// WriteFile creates path (and parent directories) with the given content.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
