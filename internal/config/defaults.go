package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Timing defaults for the processing pipeline.
const (
	DefaultDedupWindowSeconds = 30
	DefaultSettleSeconds      = 10
	DefaultPollInterval       = 1
	DefaultPollTimeout        = 15
	DefaultStableTicks        = 3
	DefaultLockAttempts       = 10
	DefaultLockIntervalMillis = 500
	DefaultMoveAttempts       = 3
	DefaultMoveBackoff        = 1
)

// Default returns a config populated with built-in defaults. The rule list
// is intentionally empty; a usable config always comes from a file.
func Default() Config {
	return Config{
		Language: "en",
		Paths: Paths{
			WatchDir: defaultWatchDir(),
			LogDir:   defaultStateDir("log"),
			DataDir:  defaultStateDir("data"),
		},
		Watch: Watch{
			DedupWindowSeconds: DefaultDedupWindowSeconds,
		},
		Printing: Printing{
			SettleSeconds:       DefaultSettleSeconds,
			PollIntervalSeconds: DefaultPollInterval,
			PollTimeoutSeconds:  DefaultPollTimeout,
			StableTicks:         DefaultStableTicks,
		},
		Archive: Archive{
			LockAttempts:       DefaultLockAttempts,
			LockIntervalMillis: DefaultLockIntervalMillis,
			MoveAttempts:       DefaultMoveAttempts,
			MoveBackoffSeconds: DefaultMoveBackoff,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultWatchDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}

func defaultStateDir(kind string) string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "printdrop", kind)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("printdrop", kind)
	}
	return filepath.Join(home, ".local", "state", "printdrop", kind)
}
