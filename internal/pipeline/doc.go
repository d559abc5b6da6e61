// Package pipeline sequences the three document-generation stages over a
// shared per-run memory.
//
// A run owns exactly one Memory instance. Stages read their upstream
// documents from it, append ReAct-style trace entries (thought, action,
// observation, result), and write their final document and rendered file
// path back. The orchestrator selects which stages execute based on the
// requested mode, forwards trace entries to the caller, and emits a summary
// entry when the run ends, successful or not.
//
// Memory is intentionally lock-free: a run's stages execute strictly
// sequentially on one goroutine, and independent runs never share a Memory.
package pipeline
