package coherence

import (
	"strings"
	"testing"
)

func retourFor(topic string) map[string]any {
	return map[string]any{
		"topic": topic,
		"definedTerms": map[string]any{
			"pare-feu":    "filtrage",
			"vpn":         "tunnel",
			"ids":         "détection",
			"chiffrement": "protection",
			"proxy":       "relais",
			"dmz":         "zone exposée",
		},
		"hypothesisValidations": []any{
			map[string]any{"hypothesis": "h1", "verdict": "validée"},
			map[string]any{"hypothesis": "h2", "verdict": "réfutée"},
			map[string]any{"hypothesis": "h3", "verdict": "validée"},
		},
	}
}

func allerFor(topic string) map[string]any {
	return map[string]any{
		"topic":      topic,
		"keywords":   []any{"pare-feu", "vpn", "ids", "dmz", "chiffrement", "proxy"},
		"hypotheses": []any{"h1", "h2", "h3"},
	}
}

func TestCheckNilUpstream(t *testing.T) {
	result := Check(nil, nil)
	if result.Coherent {
		t.Fatal("expected incoherent result for missing upstream")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("expected a single issue, got %v", result.Issues)
	}
}

func TestCheckNilDownstream(t *testing.T) {
	result := Check(allerFor("Cloud migration"), nil)
	if !result.Coherent || len(result.Issues) != 0 {
		t.Fatalf("expected coherent result, got %+v", result)
	}
}

func TestCheckMatchingDocuments(t *testing.T) {
	result := Check(allerFor("Sécurité des réseaux"), retourFor("Sécurité des réseaux"))
	if !result.Coherent {
		t.Fatalf("expected coherent result, got issues %v", result.Issues)
	}
}

func TestCheckTopicMismatch(t *testing.T) {
	result := Check(allerFor("Cloud migration"), retourFor("Unrelated topic"))
	if result.Coherent {
		t.Fatal("expected incoherent result")
	}
	found := false
	for _, issue := range result.Issues {
		if strings.Contains(issue, "Cloud migration") && strings.Contains(issue, "Unrelated topic") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a topic issue naming both topics, got %v", result.Issues)
	}
}

func TestCheckTopicContainmentTolerated(t *testing.T) {
	result := Check(allerFor("Cloud migration"), retourFor("Étude CLOUD MIGRation avancée"))
	for _, issue := range result.Issues {
		if strings.Contains(issue, "topic mismatch") {
			t.Fatalf("containment of the first 10 characters should pass: %v", result.Issues)
		}
	}
}

func TestCheckEmptyDownstreamTopicIgnored(t *testing.T) {
	down := retourFor("")
	result := Check(allerFor("Cloud migration"), down)
	for _, issue := range result.Issues {
		if strings.Contains(issue, "topic mismatch") {
			t.Fatalf("empty downstream topic must not flag: %v", result.Issues)
		}
	}
}

func TestCheckHypothesisCount(t *testing.T) {
	down := retourFor("Cloud migration")
	down["hypothesisValidations"] = []any{
		map[string]any{"hypothesis": "h1", "verdict": "validée"},
		map[string]any{"hypothesis": "h2", "verdict": "réfutée"},
	}
	result := Check(allerFor("Cloud migration"), down)
	if result.Coherent {
		t.Fatal("expected incoherent result")
	}
	found := false
	for _, issue := range result.Issues {
		if strings.Contains(issue, "2 hypothesis validations") && strings.Contains(issue, "3 hypotheses") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a count issue, got %v", result.Issues)
	}
}

func TestCheckCountSkippedWithoutField(t *testing.T) {
	down := map[string]any{"topic": "Cloud migration"}
	result := Check(allerFor("Cloud migration"), down)
	if !result.Coherent {
		t.Fatalf("report-style downstream must not be penalized: %v", result.Issues)
	}
}

func TestCheckKeywordCoverage(t *testing.T) {
	down := retourFor("Cloud migration")
	down["definedTerms"] = map[string]any{
		"pare-feu": "filtrage",
		"vpn":      "tunnel",
		"latence":  "délai de transmission",
	}
	result := Check(allerFor("Cloud migration"), down)
	if result.Coherent {
		t.Fatal("expected incoherent result")
	}
	var coverage string
	for _, issue := range result.Issues {
		if strings.Contains(issue, "not addressed") {
			coverage = issue
		}
	}
	if coverage == "" {
		t.Fatalf("expected a coverage issue, got %v", result.Issues)
	}
	// 4 uncovered (ids, dmz, chiffrement, proxy), at most 3 named.
	if got := strings.Count(coverage, ","); got != 2 {
		t.Fatalf("expected exactly 3 named keywords, got %q", coverage)
	}
}

func TestCheckTwoUncoveredKeywordsTolerated(t *testing.T) {
	down := retourFor("Cloud migration")
	down["definedTerms"] = map[string]any{
		"pare-feu":    "filtrage",
		"vpn":         "tunnel",
		"ids":         "détection",
		"chiffrement": "protection",
	}
	result := Check(allerFor("Cloud migration"), down)
	for _, issue := range result.Issues {
		if strings.Contains(issue, "not addressed") {
			t.Fatalf("two uncovered keywords are within tolerance: %v", result.Issues)
		}
	}
}

const studyContext = "Le projet consiste à cloisonner le réseau interne de l'entreprise en zones distinctes. " +
	"Les VLAN séparent les services, le pare-feu filtre les flux entre segments, la DMZ héberge les serveurs " +
	"exposés, et la supervision collecte les journaux des équipements pour détecter les anomalies de trafic. " +
	"Les commutateurs appliquent les règles d'accès définies par l'équipe sécurité."

func studyAller() map[string]any {
	return map[string]any{
		"topic":   "Cloisonnement du réseau interne",
		"context": studyContext,
	}
}

func matchedCER() map[string]any {
	return map[string]any{
		"topic":        "Cloisonnement du réseau interne",
		"introduction": "L'étude du cloisonnement réseau précise les zones retenues pour l'entreprise et les flux autorisés entre segments.",
		"sections": []any{
			map[string]any{"heading": "Segmentation", "content": "Les VLAN séparent les services et limitent la diffusion, tandis que le pare-feu filtre les flux entre les zones définies du réseau interne."},
			map[string]any{"heading": "Exposition", "content": "La DMZ héberge les serveurs exposés et la supervision collecte les journaux des équipements du réseau."},
		},
		"conclusion": "Le réseau cloisonné répond aux règles de sécurité définies par l'équipe et simplifie la détection des anomalies de trafic.",
	}
}

func unrelatedCER() map[string]any {
	return map[string]any{
		"topic":        "Cloisonnement du réseau interne",
		"introduction": "La recette traditionnelle associe une pâte feuilletée au beurre, des pommes caramélisées et une crème vanillée.",
		"sections": []any{
			map[string]any{"heading": "Cuisson", "content": "La cuisson démarre four chaud puis baisse progressivement afin d'obtenir un feuilletage doré et régulier sur toute la surface."},
			map[string]any{"heading": "Dressage", "content": "Le sucre fondu nappe les fruits, la cannelle parfume la garniture, et le dressage s'achève avec des amandes grillées et un coulis d'abricot tiède."},
		},
		"conclusion": "Le dessert se déguste tiède accompagné d'une boule de glace vanille ou d'une chantilly maison selon la saison.",
	}
}

func TestCheckVocabularyAgreementPasses(t *testing.T) {
	result := Check(studyAller(), matchedCER())
	if !result.Coherent {
		t.Fatalf("documents sharing their study vocabulary flagged: %v", result.Issues)
	}
}

func TestCheckVocabularyDrift(t *testing.T) {
	result := Check(studyAller(), unrelatedCER())
	if result.Coherent {
		t.Fatal("expected incoherent result for disjoint vocabularies")
	}
	if len(result.Issues) != 1 || !strings.Contains(result.Issues[0], "shares almost no vocabulary") {
		t.Fatalf("expected a single drift issue, got %v", result.Issues)
	}
}

func TestCheckVocabularySkippedForShortDocuments(t *testing.T) {
	up := map[string]any{
		"topic":   "Cloisonnement du réseau interne",
		"context": "Le réseau est découpé en zones distinctes.",
	}
	result := Check(up, unrelatedCER())
	for _, issue := range result.Issues {
		if strings.Contains(issue, "vocabulary") {
			t.Fatalf("short upstream must not trigger the drift check: %v", result.Issues)
		}
	}
}
