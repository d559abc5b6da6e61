package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"prositor/internal/document"
	"prositor/internal/pipeline"
)

// planningPrompt returns the system prompt for the stage's plan call.
func planningPrompt(t document.Type) string {
	switch t {
	case document.Retour:
		return RetourPlanningPrompt
	case document.CER:
		return CERPlanningPrompt
	default:
		return AllerPlanningPrompt
	}
}

// draftPrompt returns the system prompt for the stage's drafting call.
func draftPrompt(t document.Type) string {
	switch t {
	case document.Retour:
		return RetourDraftPrompt
	case document.CER:
		return CERDraftPrompt
	default:
		return AllerDraftPrompt
	}
}

// buildPlanningUser constructs the user message for the plan call.
func buildPlanningUser(identity pipeline.Identity, upstream map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sujet du prosit : %s\n", identity.Topic)
	fmt.Fprintf(&b, "Programme : %s (%s)\n", identity.Program, identity.AcademicYear)
	if upstream != nil {
		b.WriteString("\nDocument précédent :\n")
		b.WriteString(compactJSON(upstream))
		b.WriteString("\n")
	}
	return b.String()
}

// buildDraftUser constructs the user message for the drafting call.
func buildDraftUser(identity pipeline.Identity, upstream map[string]any, plan map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sujet du prosit : %s\n", identity.Topic)
	fmt.Fprintf(&b, "Étudiant : %s\n", identity.Student)
	fmt.Fprintf(&b, "Programme : %s (%s)\n", identity.Program, identity.AcademicYear)
	if len(plan) > 0 {
		b.WriteString("\nPlan de rédaction :\n")
		b.WriteString(compactJSON(plan))
		b.WriteString("\n")
	}
	if upstream != nil {
		b.WriteString("\nDocument précédent :\n")
		b.WriteString(compactJSON(upstream))
		b.WriteString("\n")
	}
	return b.String()
}

// buildRepairUser constructs the correction request listing only the violated
// rules alongside the current document.
func buildRepairUser(violations []string, current map[string]any) string {
	var b strings.Builder
	b.WriteString("Le document ci-dessous ne respecte pas les règles suivantes :\n")
	for _, violation := range violations {
		fmt.Fprintf(&b, "- %s\n", violation)
	}
	b.WriteString("\nDocument actuel :\n")
	b.WriteString(compactJSON(current))
	b.WriteString("\n\nRéponds UNIQUEMENT avec l'objet JSON complet et corrigé, en conservant les champs déjà conformes.")
	return b.String()
}

func compactJSON(doc map[string]any) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(data)
}
