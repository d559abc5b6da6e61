// Package server exposes the generation pipeline over a local HTTP API.
//
// It wires configuration, the history store, the log stream hub, and the
// notification service into a single lifecycle with flock-based locking to
// prevent multiple instances. Accepted generation requests run in
// background goroutines through the api workflow; a registry keeps their
// live state queryable until the process exits, after which the history
// store answers for them.
//
// Keep transport concerns here: request decoding, status mapping, and
// long-poll plumbing. Pipeline semantics live in the pipeline and
// generation packages.
package server
