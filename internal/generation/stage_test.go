package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"prositor/internal/document"
	"prositor/internal/generation"
	"prositor/internal/pipeline"
	"prositor/internal/services"
	"prositor/internal/services/llm"
)

type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     [][]llm.Message
	budgets   []int
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []llm.Message, maxTokens int) (llm.Completion, error) {
	i := len(s.calls)
	cloned := append([]llm.Message(nil), messages...)
	s.calls = append(s.calls, cloned)
	s.budgets = append(s.budgets, maxTokens)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Completion{}, s.errs[i]
	}
	content := "{}"
	if i < len(s.responses) {
		content = s.responses[i]
	}
	return llm.Completion{Content: content, FinishReason: "stop"}, nil
}

type stubRenderer struct {
	doc       map[string]any
	outputDir string
	path      string
	err       error
	calls     int
}

func (s *stubRenderer) Render(_ context.Context, doc map[string]any, identity pipeline.Identity, outputDir string) (string, error) {
	s.calls++
	s.doc = doc
	s.outputDir = outputDir
	if s.err != nil {
		return "", s.err
	}
	if s.path != "" {
		return s.path, nil
	}
	return outputDir + "/1_Prosit_Aller_" + identity.Slug + ".docx", nil
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(data)
}

func validAllerDoc() map[string]any {
	return map[string]any{
		"topic":            "Sécurité des réseaux",
		"keywords":         []any{"pare-feu", "dmz", "vlan", "segmentation", "acl", "supervision"},
		"context":          "L'entreprise héberge l'ensemble de ses services sur un réseau à plat, sans cloisonnement entre les postes bureautiques et les serveurs de production.",
		"problemStatement": "Comment cloisonner le réseau de l'entreprise sans interrompre la production ?",
		"constraints":      []any{"budget limité", "aucune interruption de service"},
		"deliverables":     []any{"schéma du réseau cible", "plan de migration"},
		"hypotheses":       []any{"La segmentation par VLAN suffit", "Un pare-feu interne est nécessaire", "Les ACL couvrent les besoins"},
		"actionPlan":       []any{"cartographier les flux", "définir les zones", "configurer les VLAN", "tester le cloisonnement"},
	}
}

func validRetourDoc() map[string]any {
	return map[string]any{
		"topic": "Sécurité des réseaux",
		"definedTerms": map[string]any{
			"pare-feu":     "équipement filtrant le trafic entre les zones du réseau",
			"dmz":          "zone exposée isolée du réseau interne",
			"vlan":         "réseau local virtuel isolant un domaine de diffusion",
			"segmentation": "découpage du réseau en domaines restreints",
			"acl":          "liste de contrôle d'accès appliquée aux flux",
			"supervision":  "collecte et analyse des événements du réseau",
		},
		"hypothesisValidations": []any{
			map[string]any{"hypothesis": "La segmentation par VLAN suffit", "verdict": "nuancée", "justification": "elle limite la diffusion mais ne filtre pas les flux"},
			map[string]any{"hypothesis": "Un pare-feu interne est nécessaire", "verdict": "validée", "justification": "le filtrage inter-zones l'exige"},
			map[string]any{"hypothesis": "Les ACL couvrent les besoins", "verdict": "rejetée", "justification": "elles ne suivent pas les sessions"},
		},
		"solutionSummary": "La solution retenue combine une segmentation par VLAN et un pare-feu interne qui filtre les échanges entre les zones définies.",
		"lessonsLearned":  []any{"documenter les flux avant de cloisonner", "tester chaque règle en environnement de recette"},
		"conclusion":      "Le cloisonnement du réseau est opérationnel et documenté pour les équipes.",
	}
}

func planJSON(t *testing.T) string {
	return mustJSON(t, map[string]any{
		"topicsToDeepen": []string{"segmentation", "filtrage"},
		"gaps":           []string{"volumétrie des flux"},
		"detailLevel":    "standard",
	})
}

func newAllerStage(t *testing.T, completer generation.Completer, renderer generation.Renderer, opts ...generation.Option) *generation.Stage {
	t.Helper()
	stage, err := generation.NewStage(document.Aller, completer, renderer, opts...)
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	return stage
}

func TestStageRunHappyPath(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, validAllerDoc()),
	}}
	renderer := &stubRenderer{path: "/out/1_Prosit_Aller_securite-des-reseaux.docx"}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(completer.calls) != 2 {
		t.Fatalf("llm calls = %d, want plan + draft", len(completer.calls))
	}
	if completer.budgets[0] != 1024 || completer.budgets[1] != 4096 {
		t.Fatalf("token budgets = %v", completer.budgets)
	}
	if completer.calls[1][0].Content != generation.AllerDraftPrompt {
		t.Fatal("draft call does not use the aller system prompt")
	}
	if !strings.Contains(completer.calls[1][1].Content, "Plan de rédaction") {
		t.Fatalf("draft user message missing plan context:\n%s", completer.calls[1][1].Content)
	}

	if renderer.calls != 1 {
		t.Fatalf("renderer calls = %d", renderer.calls)
	}
	if renderer.doc["topic"] != "Sécurité des réseaux" {
		t.Fatalf("renderer received wrong document: %v", renderer.doc)
	}

	if _, ok := mem.Document(document.Aller); !ok {
		t.Fatal("document slot not filled")
	}
	if path, ok := mem.File(document.Aller); !ok || !strings.HasSuffix(path, ".docx") {
		t.Fatalf("file slot = %q, %v", path, ok)
	}

	trace := mem.Trace()
	last := trace[len(trace)-1]
	if last.Kind != pipeline.KindResult || !strings.Contains(last.Message, "score 100/100") {
		t.Fatalf("final trace entry = %+v", last)
	}
	kinds := map[pipeline.Kind]bool{}
	for _, entry := range trace {
		kinds[entry.Kind] = true
	}
	for _, kind := range []pipeline.Kind{pipeline.KindThought, pipeline.KindAction, pipeline.KindObservation, pipeline.KindResult} {
		if !kinds[kind] {
			t.Fatalf("trace missing kind %q: %+v", kind, trace)
		}
	}
}

func TestStagePlanFailureDegradesToEmptyPlan(t *testing.T) {
	completer := &scriptedCompleter{
		errs:      []error{errors.New("temporarily unavailable")},
		responses: []string{"", mustJSON(t, validAllerDoc())},
	}
	renderer := &stubRenderer{}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(completer.calls) != 2 {
		t.Fatalf("llm calls = %d, want plan + draft", len(completer.calls))
	}
	if strings.Contains(completer.calls[1][1].Content, "Plan de rédaction") {
		t.Fatalf("draft user message should omit the empty plan:\n%s", completer.calls[1][1].Content)
	}
	var degraded bool
	for _, entry := range mem.Trace() {
		if strings.Contains(entry.Message, "plan vide") {
			degraded = true
		}
	}
	if !degraded {
		t.Fatalf("degraded-plan observation missing: %+v", mem.Trace())
	}
}

func TestStagePlanExtractionFailureDegradesToEmptyPlan(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"je ne peux pas produire de plan",
		mustJSON(t, validAllerDoc()),
	}}
	stage := newAllerStage(t, completer, &stubRenderer{})

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(completer.calls) != 2 {
		t.Fatalf("llm calls = %d", len(completer.calls))
	}
}

func TestStageDraftExtractionFailureIsFatal(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		"désolé, je ne peux pas répondre en JSON",
	}}
	renderer := &stubRenderer{}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	err := stage.Run(context.Background(), mem)
	if !errors.Is(err, services.ErrNoJSONFound) {
		t.Fatalf("error = %v, want no-json marker", err)
	}
	if renderer.calls != 0 {
		t.Fatal("renderer called after extraction failure")
	}
	if _, ok := mem.Document(document.Aller); ok {
		t.Fatal("document slot filled despite failure")
	}
}

func TestStageDraftTransportErrorIsWrapped(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{planJSON(t), ""},
		errs:      []error{nil, errors.New("connection reset")},
	}
	stage := newAllerStage(t, completer, &stubRenderer{})

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	err := stage.Run(context.Background(), mem)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want external-tool marker", err)
	}
}

func TestStageCancellationPropagatesUnwrapped(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{planJSON(t), ""},
		errs:      []error{nil, context.Canceled},
	}
	stage := newAllerStage(t, completer, &stubRenderer{})

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	err := stage.Run(context.Background(), mem)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("cancellation should not be rewrapped: %v", err)
	}
}

func TestStageRepairMergesPatchOverDraft(t *testing.T) {
	draft := validAllerDoc()
	draft["keywords"] = []any{"pare-feu", "dmz"}                                      // too few
	draft["problemStatement"] = "Comment cloisonner le réseau de l'entreprise"        // no question mark
	patch := map[string]any{
		"keywords":         []any{"pare-feu", "dmz", "vlan", "segmentation", "acl", "supervision"},
		"problemStatement": "Comment cloisonner le réseau de l'entreprise sans interrompre la production ?",
	}

	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, draft),
		mustJSON(t, patch),
	}}
	renderer := &stubRenderer{}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(completer.calls) != 3 {
		t.Fatalf("llm calls = %d, want plan + draft + repair", len(completer.calls))
	}

	repairCall := completer.calls[2]
	if len(repairCall) != 4 {
		t.Fatalf("repair conversation length = %d, want system/user/assistant/user", len(repairCall))
	}
	if repairCall[2].Role != "assistant" {
		t.Fatalf("third repair message role = %q", repairCall[2].Role)
	}
	repairUser := repairCall[3].Content
	if !strings.Contains(repairUser, "keywords: at least 6 entries required") ||
		!strings.Contains(repairUser, "problemStatement: must end with a question mark") {
		t.Fatalf("repair request missing violated rules:\n%s", repairUser)
	}
	if strings.Contains(repairUser, "context: at least 80 characters required") {
		t.Fatalf("repair request lists rules that passed:\n%s", repairUser)
	}

	// Patch fields replace, untouched fields survive.
	merged := renderer.doc
	if got := merged["problemStatement"]; got != patch["problemStatement"] {
		t.Fatalf("problemStatement not patched: %v", got)
	}
	if got, _ := merged["context"].(string); !strings.Contains(got, "réseau à plat") {
		t.Fatalf("unpatched field lost: %v", got)
	}

	trace := mem.Trace()
	last := trace[len(trace)-1]
	if !strings.Contains(last.Message, "score 100/100") {
		t.Fatalf("final entry = %+v", last)
	}
	var rescored bool
	for _, entry := range trace {
		if strings.Contains(entry.Message, "Score après correction") {
			rescored = true
		}
	}
	if !rescored {
		t.Fatalf("post-repair score entry missing: %+v", trace)
	}
}

func TestStageLowScoreAfterRepairNeverBlocks(t *testing.T) {
	draft := validAllerDoc()
	draft["keywords"] = []any{"pare-feu"}

	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, draft),
		mustJSON(t, map[string]any{"keywords": []any{"pare-feu", "dmz"}}), // still too few
	}}
	renderer := &stubRenderer{}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run should succeed despite a failing score: %v", err)
	}
	if renderer.calls != 1 {
		t.Fatal("renderer not called")
	}
	if _, ok := mem.File(document.Aller); !ok {
		t.Fatal("file slot not filled")
	}
	last := mem.Trace()[len(mem.Trace())-1]
	if !strings.Contains(last.Message, "score 89/100") {
		t.Fatalf("final entry should carry the degraded score: %+v", last)
	}
}

func TestStageRepairExtractionFailureIsFatal(t *testing.T) {
	draft := validAllerDoc()
	draft["keywords"] = []any{"pare-feu"}

	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, draft),
		"toujours pas de JSON",
	}}
	renderer := &stubRenderer{}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	err := stage.Run(context.Background(), mem)
	if !errors.Is(err, services.ErrNoJSONFound) {
		t.Fatalf("error = %v, want no-json marker", err)
	}
	if renderer.calls != 0 {
		t.Fatal("renderer called after repair extraction failure")
	}
}

func TestStageRetourRequiresAller(t *testing.T) {
	completer := &scriptedCompleter{}
	stage, err := generation.NewStage(document.Retour, completer, &stubRenderer{})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	runErr := stage.Run(context.Background(), mem)
	if !errors.Is(runErr, services.ErrMissingPrerequisite) {
		t.Fatalf("error = %v, want missing-prerequisite marker", runErr)
	}
	if len(completer.calls) != 0 {
		t.Fatal("llm called despite missing prerequisite")
	}
}

func TestStageCERPrerequisiteFallback(t *testing.T) {
	run := func(t *testing.T, seed func(*pipeline.Memory)) ([][]llm.Message, error) {
		t.Helper()
		completer := &scriptedCompleter{responses: []string{planJSON(t), mustJSON(t, map[string]any{
			"topic":        "Sécurité des réseaux",
			"introduction": strings.Repeat("Le cloisonnement réseau répond aux exigences de sécurité. ", 3),
			"sections": []any{
				map[string]any{"heading": "Principes", "content": strings.Repeat("La segmentation limite la propagation des incidents sur le réseau interne. ", 2)},
				map[string]any{"heading": "VLAN", "content": strings.Repeat("Les VLAN découpent le réseau en domaines de diffusion distincts et isolés. ", 2)},
				map[string]any{"heading": "Filtrage", "content": strings.Repeat("Le pare-feu interne applique une politique de filtrage entre les zones définies. ", 2)},
				map[string]any{"heading": "Supervision", "content": strings.Repeat("La supervision collecte les journaux et détecte les comportements anormaux. ", 2)},
			},
			"conclusion": "La démarche aboutit à un réseau cloisonné, supervisé et conforme aux attentes de l'entreprise.",
			"references": []any{"ANSSI, guide d'hygiène informatique", "RFC 791", "Documentation constructeur"},
		})}}
		stage, err := generation.NewStage(document.CER, completer, &stubRenderer{})
		if err != nil {
			t.Fatalf("NewStage: %v", err)
		}
		mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
		seed(mem)
		runErr := stage.Run(context.Background(), mem)
		return completer.calls, runErr
	}

	t.Run("prefers retour", func(t *testing.T) {
		calls, err := run(t, func(mem *pipeline.Memory) {
			mem.SetDocument(document.Aller, validAllerDoc())
			mem.SetDocument(document.Retour, validRetourDoc())
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !strings.Contains(calls[1][1].Content, "solutionSummary") {
			t.Fatalf("draft context should embed the retour document:\n%s", calls[1][1].Content)
		}
	})

	t.Run("falls back to aller", func(t *testing.T) {
		calls, err := run(t, func(mem *pipeline.Memory) {
			mem.SetDocument(document.Aller, validAllerDoc())
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !strings.Contains(calls[1][1].Content, "problemStatement") {
			t.Fatalf("draft context should embed the aller document:\n%s", calls[1][1].Content)
		}
	})

	t.Run("fails without either", func(t *testing.T) {
		_, err := run(t, func(*pipeline.Memory) {})
		if !errors.Is(err, services.ErrMissingPrerequisite) {
			t.Fatalf("error = %v, want missing-prerequisite marker", err)
		}
	})
}

func TestStageRecordsCoherenceWarnings(t *testing.T) {
	aller := validAllerDoc()
	aller["hypotheses"] = []any{"h1", "h2", "h3", "h4"} // one more than the retour validates

	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, validRetourDoc()),
	}}
	stage, err := generation.NewStage(document.Retour, completer, &stubRenderer{})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	mem.SetDocument(document.Aller, aller)
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run: %v", err)
	}

	warnings := mem.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want hypothesis-count warning", warnings)
	}
	if !strings.HasPrefix(warnings[0], "retour: ") || !strings.Contains(warnings[0], "3 hypothesis validations cover 4") {
		t.Fatalf("warning = %q", warnings[0])
	}
}

func TestStageRenderFailurePropagates(t *testing.T) {
	renderErr := services.Wrap(services.ErrRender, "aller", "render", "pandoc conversion", errors.New("exit status 1"))
	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, validAllerDoc()),
	}}
	renderer := &stubRenderer{err: renderErr}
	stage := newAllerStage(t, completer, renderer)

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	err := stage.Run(context.Background(), mem)
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("error = %v, want render marker", err)
	}
	if _, ok := mem.File(document.Aller); ok {
		t.Fatal("file slot filled despite render failure")
	}
	if _, ok := mem.Document(document.Aller); ok {
		t.Fatal("document slot filled despite render failure")
	}
}

func TestStageTokenBudgetOverrides(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		planJSON(t),
		mustJSON(t, validAllerDoc()),
	}}
	stage := newAllerStage(t, completer, &stubRenderer{}, generation.WithTokenBudgets(2048, 512))

	mem := pipeline.NewMemory(pipeline.Identity{Topic: "Sécurité des réseaux"}, "/out")
	if err := stage.Run(context.Background(), mem); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if completer.budgets[0] != 512 || completer.budgets[1] != 2048 {
		t.Fatalf("budgets = %v", completer.budgets)
	}
}

func TestNewStageValidatesInputs(t *testing.T) {
	if _, err := generation.NewStage(document.Type("memo"), &scriptedCompleter{}, &stubRenderer{}); err == nil {
		t.Fatal("unknown type accepted")
	}
	if _, err := generation.NewStage(document.Aller, nil, &stubRenderer{}); err == nil {
		t.Fatal("nil completer accepted")
	}
	if _, err := generation.NewStage(document.Aller, &scriptedCompleter{}, nil); err == nil {
		t.Fatal("nil renderer accepted")
	}
}
