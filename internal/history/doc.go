// Package history persists finished runs to a SQLite database in the output
// directory. Each run row carries identity, mode, outcome, rendered file
// paths, and accumulated warnings so past generations stay inspectable from
// the CLI and the HTTP API.
package history
