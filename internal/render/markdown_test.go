package render

import (
	"strings"
	"testing"

	"prositor/internal/document"
	"prositor/internal/pipeline"
)

var renderIdentity = pipeline.Identity{
	Topic:        "Sécurité des réseaux",
	Student:      "Étudiant CESI",
	Program:      "A3 Informatique",
	AcademicYear: "2025-2026",
	Slug:         "securite-des-reseaux",
}

func TestMarkdownAllerSectionOrder(t *testing.T) {
	doc := map[string]any{
		"topic":            "Sécurité des réseaux",
		"keywords":         []any{"pare-feu", "dmz", "vlan"},
		"context":          "L'entreprise souhaite cloisonner son réseau interne.",
		"problemStatement": "Comment segmenter le réseau sans interrompre la production ?",
		"constraints":      []any{"budget limité", "pas d'interruption"},
		"deliverables":     []any{"schéma réseau", "plan de migration"},
		"hypotheses":       []any{"h1", "h2", "h3"},
		"actionPlan":       []any{"étape 1", "étape 2", "étape 3", "étape 4"},
	}

	md := Markdown(document.Aller, doc, renderIdentity)

	if !strings.HasPrefix(md, "# Prosit Aller : Sécurité des réseaux\n") {
		t.Fatalf("missing title heading:\n%s", md)
	}
	wantOrder := []string{
		"**Étudiant :** Étudiant CESI",
		"## Mots-clés",
		"- pare-feu",
		"## Contexte",
		"## Problématique",
		"Comment segmenter le réseau sans interrompre la production ?",
		"## Contraintes",
		"## Livrables",
		"## Hypothèses",
		"1. h1",
		"## Plan d'action",
		"4. étape 4",
	}
	pos := 0
	for _, marker := range wantOrder {
		idx := strings.Index(md[pos:], marker)
		if idx < 0 {
			t.Fatalf("marker %q missing after position %d:\n%s", marker, pos, md)
		}
		pos += idx + len(marker)
	}
}

func TestMarkdownRetourUsesSlidePerHeading(t *testing.T) {
	doc := map[string]any{
		"topic": "Sécurité des réseaux",
		"definedTerms": map[string]any{
			"vlan":     "réseau local virtuel",
			"dmz":      "zone démilitarisée",
			"pare-feu": "filtre de trafic",
		},
		"hypothesisValidations": []any{
			map[string]any{"hypothesis": "h1", "verdict": "validée", "justification": "tests concluants"},
			map[string]any{"hypothesis": "h2", "verdict": "rejetée"},
		},
		"solutionSummary": "La segmentation par VLAN répond au besoin.",
		"lessonsLearned":  []any{"documenter les flux", "tester avant déploiement"},
		"conclusion":      "Le cloisonnement est en place.",
	}

	md := Markdown(document.Retour, doc, renderIdentity)

	// pptx slides come from top-level headings only.
	if strings.Contains(md, "\n## ") {
		t.Fatalf("retour markdown must not contain level-2 headings:\n%s", md)
	}
	for _, slide := range []string{
		"# Prosit Retour : Sécurité des réseaux",
		"# Termes définis",
		"# Validation des hypothèses",
		"# Synthèse de la solution",
		"# Enseignements",
		"# Conclusion",
	} {
		if !strings.Contains(md, slide+"\n") {
			t.Fatalf("missing slide heading %q:\n%s", slide, md)
		}
	}

	// Terms are emitted in sorted key order for stable output.
	dmz := strings.Index(md, "**dmz**")
	pareFeu := strings.Index(md, "**pare-feu**")
	vlan := strings.Index(md, "**vlan**")
	if dmz < 0 || pareFeu < 0 || vlan < 0 || !(dmz < pareFeu && pareFeu < vlan) {
		t.Fatalf("terms not in sorted order (dmz=%d pare-feu=%d vlan=%d):\n%s", dmz, pareFeu, vlan, md)
	}

	if !strings.Contains(md, "- **h1** : validée. tests concluants") {
		t.Fatalf("validation entry with justification malformed:\n%s", md)
	}
	if !strings.Contains(md, "- **h2** : rejetée\n") {
		t.Fatalf("validation entry without justification malformed:\n%s", md)
	}
}

func TestMarkdownCERKeepsSectionOrder(t *testing.T) {
	doc := map[string]any{
		"topic":        "Sécurité des réseaux",
		"introduction": "Cette étude présente les mécanismes de cloisonnement réseau.",
		"sections": []any{
			map[string]any{"heading": "Principes de segmentation", "content": "Les VLAN isolent les domaines de diffusion."},
			map[string]any{"heading": "Mise en œuvre", "content": "La configuration s'appuie sur des commutateurs administrables."},
			map[string]any{"heading": "", "content": "contenu orphelin ignoré"},
		},
		"conclusion": "La segmentation réduit la surface d'attaque.",
		"references": []any{"RFC 791", "ANSSI 2024"},
	}

	md := Markdown(document.CER, doc, renderIdentity)

	if !strings.HasPrefix(md, "# Compte d'Étude et de Recherche : Sécurité des réseaux\n") {
		t.Fatalf("missing title heading:\n%s", md)
	}
	intro := strings.Index(md, "## Introduction")
	first := strings.Index(md, "## Principes de segmentation")
	second := strings.Index(md, "## Mise en œuvre")
	conclusion := strings.Index(md, "## Conclusion")
	refs := strings.Index(md, "## Références")
	if !(intro < first && first < second && second < conclusion && conclusion < refs) {
		t.Fatalf("section order wrong (%d %d %d %d %d):\n%s", intro, first, second, conclusion, refs, md)
	}
	if strings.Contains(md, "contenu orphelin") {
		t.Fatalf("section without heading should be skipped:\n%s", md)
	}
}

func TestMarkdownFallsBackToIdentityTopic(t *testing.T) {
	md := Markdown(document.Aller, map[string]any{}, renderIdentity)
	if !strings.HasPrefix(md, "# Prosit Aller : Sécurité des réseaux\n") {
		t.Fatalf("identity topic not used as fallback:\n%s", md)
	}
}
