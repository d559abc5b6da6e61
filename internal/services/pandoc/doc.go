// Package pandoc mediates access to the pandoc CLI used during rendering.
//
// It normalizes command invocation, collects diagnostic output for error
// reporting, and exposes a testable interface for the rendering step so
// document generation can be exercised without a pandoc installation.
//
// Prefer this package over ad-hoc exec.Command usage when converting
// markdown so reference-document handling and timeout behaviour remain
// consistent.
package pandoc
