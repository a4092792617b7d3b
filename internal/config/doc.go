// Package config loads and validates the printdrop TOML configuration.
package config
