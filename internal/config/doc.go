// Package config loads, normalizes, and validates replay configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the REPLAY_INPUT_DIR and
// REPLAY_OUTPUT_PATH environment fallbacks. The Config type centralizes the
// export location, clean dataset destination, record field names, catalog
// thresholds, and logging settings so the CLI resolves everything in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
