// Package generation drives the LLM stages that produce the three run
// documents. Each stage walks the same state machine: planning, drafting,
// structural validation, at most one repair, then rendering. Validation
// failures reduce the score but never block the run; only prerequisite,
// extraction, and rendering failures are fatal.
package generation
