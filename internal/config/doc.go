// Package config loads and validates qproject configuration from TOML,
// layering file values over repository defaults. It owns tool binary
// locations, the dropbox root, logging defaults, and run parameters so
// the rest of the system never reads configuration sources directly.
package config
