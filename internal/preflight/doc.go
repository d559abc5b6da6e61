// Package preflight provides readiness checks for external tools
// and filesystem paths that Prositor depends on.
//
// These checks run in two contexts:
//   - The generate command calls RunAll before starting a run. If a
//     required check fails, the run aborts early instead of dying
//     halfway through the pipeline.
//   - The CLI "prositor deps" command and the HTTP status endpoint use
//     individual check functions (SystemDeps, CheckDirectoryAccess) to
//     display readiness.
//
// Checks tied to optional configuration are skipped when the feature is unset.
package preflight
