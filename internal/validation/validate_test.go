package validation

import (
	"reflect"
	"strings"
	"testing"

	"prositor/internal/document"
)

func validAller() map[string]any {
	return map[string]any{
		"topic":            "Sécurité des réseaux",
		"keywords":         []any{"pare-feu", "vpn", "ids", "dmz", "chiffrement", "proxy"},
		"context":          "Dans le cadre de l'atelier, l'équipe découvre une infrastructure dont la sécurité n'a jamais été auditée et doit proposer une démarche complète de protection.",
		"problemStatement": "Comment sécuriser l'accès distant au système d'information sans dégrader l'expérience des utilisateurs ?",
		"constraints":      []any{"budget limité", "continuité de service"},
		"deliverables":     []any{"schéma d'architecture", "plan d'action"},
		"hypotheses":       []any{"un vpn suffit", "un pare-feu est nécessaire", "la formation réduit les risques"},
		"actionPlan":       []any{"étudier l'existant", "définir les besoins", "comparer les solutions", "rédiger les livrables"},
	}
}

func validRetour() map[string]any {
	return map[string]any{
		"topic": "Sécurité des réseaux",
		"definedTerms": map[string]any{
			"pare-feu":    "équipement filtrant le trafic entre deux réseaux",
			"vpn":         "tunnel chiffré entre deux points du réseau",
			"ids":         "système de détection d'intrusion",
			"chiffrement": "transformation réversible des données pour les protéger",
		},
		"hypothesisValidations": []any{
			map[string]any{"hypothesis": "un vpn suffit", "verdict": "réfutée", "justification": "le vpn ne protège pas le poste"},
			map[string]any{"hypothesis": "un pare-feu est nécessaire", "verdict": "validée", "justification": "le filtrage est indispensable"},
			map[string]any{"hypothesis": "la formation réduit les risques", "verdict": "validée", "justification": "l'humain reste le maillon faible"},
		},
		"solutionSummary": "La solution retenue combine un pare-feu de périmètre, un vpn pour les accès distants et un programme de sensibilisation des utilisateurs aux risques courants.",
		"lessonsLearned":  []any{"prioriser les risques", "documenter l'architecture"},
		"conclusion":      "La démarche retenue couvre les besoins identifiés lors du prosit aller.",
	}
}

func validCER() map[string]any {
	section := func(heading string) map[string]any {
		return map[string]any{
			"heading": heading,
			"content": "Cette partie développe le sujet de manière structurée, présente les notions fondamentales, les illustre par des exemples concrets et conclut sur leur usage dans le contexte du prosit étudié.",
		}
	}
	return map[string]any{
		"topic":        "Sécurité des réseaux",
		"introduction": "Ce compte d'étude et de recherche approfondit les notions abordées pendant le prosit et fournit les bases théoriques nécessaires pour comprendre la solution proposée.",
		"sections": []any{
			section("Notions fondamentales"),
			section("Architecture de sécurité"),
			section("Protocoles et chiffrement"),
			section("Mise en oeuvre"),
		},
		"conclusion": "Les recherches menées confirment la pertinence de la solution et ouvrent des pistes d'approfondissement.",
		"references": []any{"ANSSI, guide d'hygiène informatique", "RFC 4301", "Cours réseaux CESI"},
	}
}

func TestValidateValidDocuments(t *testing.T) {
	cases := []struct {
		typ document.Type
		doc map[string]any
	}{
		{document.Aller, validAller()},
		{document.Retour, validRetour()},
		{document.CER, validCER()},
	}
	for _, tc := range cases {
		result := Validate(tc.doc, Rules(tc.typ))
		if !result.Valid {
			t.Fatalf("%s: expected valid, got errors %v", tc.typ, result.Errors)
		}
		if result.Score != 100 {
			t.Fatalf("%s: expected score 100, got %d", tc.typ, result.Score)
		}
	}
}

func TestValidateDeterminism(t *testing.T) {
	doc := validAller()
	doc["keywords"] = []any{"pare-feu", "vpn"}
	delete(doc, "context")

	first := Validate(doc, Rules(document.Aller))
	second := Validate(doc, Rules(document.Aller))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("validation not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestValidateKeywordShortfall(t *testing.T) {
	doc := validAller()
	doc["keywords"] = []any{"pare-feu", "vpn", "ids", "dmz", "chiffrement"}

	result := Validate(doc, Rules(document.Aller))
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "keywords") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	// 8 of 9 rules pass.
	if result.Score != 89 {
		t.Fatalf("expected score 89, got %d", result.Score)
	}
}

func TestValidateMonotonicity(t *testing.T) {
	doc := validAller()
	doc["keywords"] = []any{"pare-feu", "vpn", "ids", "dmz", "chiffrement"}
	before := Validate(doc, Rules(document.Aller))

	doc["keywords"] = append(doc["keywords"].([]any), "proxy")
	after := Validate(doc, Rules(document.Aller))

	if after.Score < before.Score {
		t.Fatalf("score decreased after supplying a missing entry: %d -> %d", before.Score, after.Score)
	}
	if !after.Valid {
		t.Fatalf("expected valid after completion, got %v", after.Errors)
	}
}

func TestValidateEmptyDocumentFailsEveryRule(t *testing.T) {
	rules := Rules(document.Aller)
	result := Validate(map[string]any{}, rules)
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Errors) != len(rules) {
		t.Fatalf("expected %d errors, got %d", len(rules), len(result.Errors))
	}
	for i, rule := range rules {
		if result.Errors[i] != rule.Message {
			t.Fatalf("error %d out of order: %q", i, result.Errors[i])
		}
	}
	if result.Score != 0 {
		t.Fatalf("expected score 0, got %d", result.Score)
	}

	nilResult := Validate(nil, rules)
	if !reflect.DeepEqual(result, nilResult) {
		t.Fatal("nil document should validate like an empty one")
	}
}

func TestValidateProblemStatementQuestionMark(t *testing.T) {
	doc := validAller()
	doc["problemStatement"] = "Comment sécuriser le réseau."

	result := Validate(doc, Rules(document.Aller))
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "question mark") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	doc["problemStatement"] = "Comment sécuriser le réseau ?  "
	if result := Validate(doc, Rules(document.Aller)); !result.Valid {
		t.Fatalf("trailing whitespace should be tolerated, got %v", result.Errors)
	}
}

func TestValidateRetourRecordShape(t *testing.T) {
	doc := validRetour()
	doc["hypothesisValidations"] = []any{
		map[string]any{"hypothesis": "un vpn suffit", "verdict": "réfutée"},
		map[string]any{"hypothesis": "un pare-feu est nécessaire", "verdict": ""},
		map[string]any{"hypothesis": "la formation réduit les risques", "verdict": "validée"},
	}

	result := Validate(doc, Rules(document.Retour))
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "verdict") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	// 6 of 7 rules pass.
	if result.Score != 86 {
		t.Fatalf("expected score 86, got %d", result.Score)
	}
}

func TestValidateCERSectionContent(t *testing.T) {
	doc := validCER()
	sections := doc["sections"].([]any)
	sections[2] = map[string]any{"heading": "Protocoles", "content": "Trop court."}

	result := Validate(doc, Rules(document.CER))
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "120 characters") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}

func TestValidateNoRules(t *testing.T) {
	result := Validate(map[string]any{"whatever": 1}, nil)
	if !result.Valid || result.Score != 100 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result for empty rule set: %+v", result)
	}
	if Rules(document.Type("bogus")) != nil {
		t.Fatal("expected nil rules for unknown type")
	}
}
