// Package config loads, normalizes, and validates resident configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files from the XDG config directory or the working
// directory, and honours environment overrides such as RESIDENT_LOG_LEVEL and
// RESIDENT_PROTOCOL. The Config type centralizes every knob the daemon needs
// so the serve loop, capture sessions, and logging are wired in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
