// Package logging builds the slog loggers every Prositor entry point shares
// and the handlers behind them.
//
// The console handler renders aligned, human-readable lines with per-field
// highlighting; the JSON handler feeds files and machine consumers. On top of
// the handlers sit the streaming hub behind the /api/logs endpoint, per-run
// debug log files, the on-disk event journal, and retention sweeps for all of
// them. Context helpers stamp run, stage, and correlation identifiers onto
// records so one generation run can be followed across components.
//
// Construct loggers through New or NewFromConfig rather than assembling slog
// handlers directly; that keeps field names and output routing uniform across
// the CLI and the API server.
package logging
