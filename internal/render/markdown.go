package render

import (
	"fmt"
	"sort"
	"strings"

	"prositor/internal/document"
	"prositor/internal/pipeline"
)

// Markdown composes the pandoc source for one document. Section order is
// fixed per type so renders are reproducible for identical input.
func Markdown(t document.Type, doc map[string]any, identity pipeline.Identity) string {
	var b strings.Builder
	switch t {
	case document.Retour:
		composeRetour(&b, doc, identity)
	case document.CER:
		composeCER(&b, doc, identity)
	default:
		composeAller(&b, doc, identity)
	}
	return b.String()
}

func composeAller(b *strings.Builder, doc map[string]any, identity pipeline.Identity) {
	topic := documentTopic(doc, identity)
	heading(b, 1, "Prosit Aller : "+topic)
	identityBlock(b, identity)

	heading(b, 2, "Mots-clés")
	bulletList(b, document.StringList(doc, "keywords"))

	heading(b, 2, "Contexte")
	paragraph(b, document.StringField(doc, "context"))

	heading(b, 2, "Problématique")
	paragraph(b, document.StringField(doc, "problemStatement"))

	heading(b, 2, "Contraintes")
	bulletList(b, document.StringList(doc, "constraints"))

	heading(b, 2, "Livrables")
	bulletList(b, document.StringList(doc, "deliverables"))

	heading(b, 2, "Hypothèses")
	numberedList(b, document.StringList(doc, "hypotheses"))

	heading(b, 2, "Plan d'action")
	numberedList(b, document.StringList(doc, "actionPlan"))
}

// composeRetour writes one slide per top-level heading, matching pandoc's
// pptx slide conventions.
func composeRetour(b *strings.Builder, doc map[string]any, identity pipeline.Identity) {
	topic := documentTopic(doc, identity)
	heading(b, 1, "Prosit Retour : "+topic)
	identityBlock(b, identity)

	heading(b, 1, "Termes définis")
	terms := document.MapField(doc, "definedTerms")
	for _, term := range sortedTermKeys(terms) {
		fmt.Fprintf(b, "- **%s** : %s\n", term, document.AsString(terms[term]))
	}
	b.WriteString("\n")

	heading(b, 1, "Validation des hypothèses")
	for _, record := range document.RecordList(doc, "hypothesisValidations") {
		hypothesis := document.StringField(record, "hypothesis")
		verdict := document.StringField(record, "verdict")
		justification := document.StringField(record, "justification")
		if justification == "" {
			fmt.Fprintf(b, "- **%s** : %s\n", hypothesis, verdict)
			continue
		}
		fmt.Fprintf(b, "- **%s** : %s. %s\n", hypothesis, verdict, justification)
	}
	b.WriteString("\n")

	heading(b, 1, "Synthèse de la solution")
	paragraph(b, document.StringField(doc, "solutionSummary"))

	heading(b, 1, "Enseignements")
	bulletList(b, document.StringList(doc, "lessonsLearned"))

	heading(b, 1, "Conclusion")
	paragraph(b, document.StringField(doc, "conclusion"))
}

func composeCER(b *strings.Builder, doc map[string]any, identity pipeline.Identity) {
	topic := documentTopic(doc, identity)
	heading(b, 1, "Compte d'Étude et de Recherche : "+topic)
	identityBlock(b, identity)

	heading(b, 2, "Introduction")
	paragraph(b, document.StringField(doc, "introduction"))

	for _, section := range document.RecordList(doc, "sections") {
		title := document.StringField(section, "heading")
		if title == "" {
			continue
		}
		heading(b, 2, title)
		paragraph(b, document.StringField(section, "content"))
	}

	heading(b, 2, "Conclusion")
	paragraph(b, document.StringField(doc, "conclusion"))

	heading(b, 2, "Références")
	bulletList(b, document.StringList(doc, "references"))
}

func documentTopic(doc map[string]any, identity pipeline.Identity) string {
	if topic := document.StringField(doc, "topic"); topic != "" {
		return topic
	}
	return identity.Topic
}

func identityBlock(b *strings.Builder, identity pipeline.Identity) {
	if identity.Student != "" {
		fmt.Fprintf(b, "**Étudiant :** %s  \n", identity.Student)
	}
	if identity.Program != "" {
		fmt.Fprintf(b, "**Programme :** %s  \n", identity.Program)
	}
	if identity.AcademicYear != "" {
		fmt.Fprintf(b, "**Année académique :** %s  \n", identity.AcademicYear)
	}
	b.WriteString("\n")
}

func heading(b *strings.Builder, level int, text string) {
	b.WriteString(strings.Repeat("#", level))
	b.WriteString(" ")
	b.WriteString(text)
	b.WriteString("\n\n")
}

func paragraph(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.WriteString(text)
	b.WriteString("\n\n")
}

func bulletList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	if len(items) > 0 {
		b.WriteString("\n")
	}
}

func numberedList(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
	if len(items) > 0 {
		b.WriteString("\n")
	}
}

func sortedTermKeys(terms map[string]any) []string {
	keys := make([]string, 0, len(terms))
	for key := range terms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
