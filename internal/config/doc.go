// Package config loads, normalizes, and validates acmsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ACM_API_TOKEN. The Config type centralizes every knob the acm CLI and the
// acmd checkout server need, so the shared store, local mirrors, the SRN
// state file and the server endpoint are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
