package logging

import "strings"

// FormatSubject builds the run/stage subject string used in console output.
// Run identifiers are abbreviated to their first eight characters.
func FormatSubject(runID, stage string) string {
	runID = strings.TrimSpace(runID)
	stage = strings.TrimSpace(stage)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case runID != "" && stage != "":
		return "Run " + runID + " (" + stage + ")"
	case runID != "":
		return "Run " + runID
	case stage != "":
		return stage
	default:
		return ""
	}
}
