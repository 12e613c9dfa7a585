// Package config loads, normalizes, and validates the TOML configuration
// shared by the clipshift CLI and daemon.
package config
