package config

import (
	"fmt"
	"regexp"
	"strings"
)

func (c *Config) normalize() error {
	for name, field := range map[string]*string{
		"watch_dir": &c.Paths.WatchDir,
		"log_dir":   &c.Paths.LogDir,
		"data_dir":  &c.Paths.DataDir,
	} {
		expanded, err := ExpandPath(strings.TrimSpace(*field))
		if err != nil {
			return fmt.Errorf("normalize %s: %w", name, err)
		}
		*field = expanded
	}

	if strings.TrimSpace(c.Language) == "" {
		c.Language = "en"
	}
	if c.Watch.DedupWindowSeconds < 0 {
		c.Watch.DedupWindowSeconds = 0
	}

	applyFloor(&c.Printing.SettleSeconds, 0, DefaultSettleSeconds)
	applyFloor(&c.Printing.PollIntervalSeconds, 1, DefaultPollInterval)
	applyFloor(&c.Printing.PollTimeoutSeconds, 1, DefaultPollTimeout)
	applyFloor(&c.Printing.StableTicks, 1, DefaultStableTicks)
	applyFloor(&c.Archive.LockAttempts, 1, DefaultLockAttempts)
	applyFloor(&c.Archive.LockIntervalMillis, 1, DefaultLockIntervalMillis)
	applyFloor(&c.Archive.MoveAttempts, 1, DefaultMoveAttempts)
	applyFloor(&c.Archive.MoveBackoffSeconds, 0, DefaultMoveBackoff)

	return nil
}

// applyFloor resets values below the floor to the default. Zero values come
// from absent config keys, negative ones from typos; both get the default.
func applyFloor(field *int, floor, def int) {
	if *field < floor {
		*field = def
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return fmt.Errorf("watch_dir must be configured")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("at least one [[rules]] entry is required")
	}
	for i, rule := range c.Rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return fmt.Errorf("rules[%d]: pattern must not be empty", i)
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("rules[%d]: invalid pattern: %w", i, err)
		}
		if strings.TrimSpace(rule.Destination) == "" {
			return fmt.Errorf("rules[%d]: destination must not be empty", i)
		}
		if err := validatePrintValue(rule.Print); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}

func validatePrintValue(value any) error {
	switch v := value.(type) {
	case nil, bool:
		return nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "prompt", "always", "never", "true", "false":
			return nil
		}
		return fmt.Errorf("print must be a boolean or %q, got %q", "prompt", v)
	default:
		return fmt.Errorf("print must be a boolean or %q, got %T", "prompt", value)
	}
}
