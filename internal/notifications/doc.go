// Package notifications pushes run milestones to ntfy.
//
// Service is the only surface the rest of the code sees: generation
// start, per-document completion, run success and run failure. When no
// topic is configured the constructor hands back a no-op implementation,
// so callers never branch on whether notifications are enabled.
package notifications
