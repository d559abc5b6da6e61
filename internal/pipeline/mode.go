package pipeline

import (
	"fmt"
	"strings"

	"prositor/internal/document"
)

// Mode selects which stages a run executes.
type Mode string

const (
	// ModeFull generates all three documents from the topic alone.
	ModeFull Mode = "full"
	// ModeFromA starts from a supplied Prosit Aller document.
	ModeFromA Mode = "fromA"
	// ModeFromB starts from a supplied Prosit Retour document.
	ModeFromB Mode = "fromB"
)

// ParseMode normalizes a caller-supplied mode string.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "full":
		return ModeFull, nil
	case "froma", "from_a", "from-a":
		return ModeFromA, nil
	case "fromb", "from_b", "from-b":
		return ModeFromB, nil
	}
	return "", fmt.Errorf("unknown pipeline mode %q", raw)
}

// stagePlan returns the document types to generate, in order. skipRetour is
// honored in full and fromA modes only; fromB structurally excludes the
// retour stage already.
func stagePlan(mode Mode, skipRetour bool) ([]document.Type, error) {
	switch mode {
	case ModeFull:
		order := []document.Type{document.Aller}
		if !skipRetour {
			order = append(order, document.Retour)
		}
		return append(order, document.CER), nil
	case ModeFromA:
		var order []document.Type
		if !skipRetour {
			order = append(order, document.Retour)
		}
		return append(order, document.CER), nil
	case ModeFromB:
		return []document.Type{document.CER}, nil
	}
	return nil, fmt.Errorf("unknown pipeline mode %q", mode)
}
