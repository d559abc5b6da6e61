// Package config owns the Prositor TOML configuration: defaults, file
// loading, normalization, and validation.
//
// Load resolves the config file (~/.config/prositor/config.toml, then
// ./prositor.toml), overlays it on the defaults, expands tilde paths, applies
// environment overrides such as OPENROUTER_API_KEY, and validates the result.
// A Config that came out of Load is safe to hand to the rest of the program:
// directories are absolute, the log format is canonical, and the LLM
// credentials were checked for presence.
//
// CreateSample writes an annotated starter file for `prositor config init`.
package config
