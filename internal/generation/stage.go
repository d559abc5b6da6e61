package generation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"prositor/internal/coherence"
	"prositor/internal/document"
	"prositor/internal/jsonextract"
	"prositor/internal/logging"
	"prositor/internal/pipeline"
	"prositor/internal/services"
	"prositor/internal/services/llm"
	"prositor/internal/validation"
)

// Token budget defaults applied when the configuration leaves them unset.
const (
	defaultMaxTokens     = 4096
	defaultPlanMaxTokens = 1024
)

// Completer is the LLM surface a stage needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, maxTokens int) (llm.Completion, error)
}

// Renderer produces the office file for a finished document.
type Renderer interface {
	Render(ctx context.Context, doc map[string]any, identity pipeline.Identity, outputDir string) (string, error)
}

// Option configures a stage.
type Option func(*Stage)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenBudgets overrides the drafting and planning completion budgets.
func WithTokenBudgets(maxTokens, planMaxTokens int) Option {
	return func(s *Stage) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
		if planMaxTokens > 0 {
			s.planMaxTokens = planMaxTokens
		}
	}
}

// Stage generates one document type end to end.
type Stage struct {
	docType       document.Type
	completer     Completer
	renderer      Renderer
	logger        *slog.Logger
	maxTokens     int
	planMaxTokens int
}

// NewStage constructs the generation stage for one document type.
func NewStage(docType document.Type, completer Completer, renderer Renderer, opts ...Option) (*Stage, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("unknown document type %q", docType)
	}
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	stage := &Stage{
		docType:       docType,
		completer:     completer,
		renderer:      renderer,
		maxTokens:     defaultMaxTokens,
		planMaxTokens: defaultPlanMaxTokens,
	}
	for _, opt := range opts {
		opt(stage)
	}
	stage.logger = logging.NewComponentLogger(stage.logger, "generation")
	return stage, nil
}

// Document reports the document type this stage produces.
func (s *Stage) Document() document.Type {
	return s.docType
}

// Run executes the stage state machine against the run memory.
func (s *Stage) Run(ctx context.Context, mem *pipeline.Memory) error {
	stageName := string(s.docType)
	logger := logging.WithContext(ctx, s.logger)
	identity := mem.Identity()

	// Planning.
	mem.Append(stageName, pipeline.KindThought,
		fmt.Sprintf("Analyse du sujet « %s » pour le document %s", identity.Topic, s.docType.Title()))
	upstream, err := s.prerequisite(mem)
	if err != nil {
		mem.Append(stageName, pipeline.KindObservation, "Document prérequis absent de la mémoire de travail")
		return err
	}
	plan := s.plan(ctx, logger, mem, identity, upstream)

	// Drafting.
	mem.Append(stageName, pipeline.KindAction, "Rédaction du document par le modèle")
	draftMessages := []llm.Message{
		{Role: "system", Content: draftPrompt(s.docType)},
		{Role: "user", Content: buildDraftUser(identity, upstream, plan)},
	}
	completion, err := s.completer.Complete(ctx, draftMessages, s.maxTokens)
	if err != nil {
		mem.Append(stageName, pipeline.KindObservation, "Échec de l'appel au modèle pendant la rédaction")
		return s.wrapCompletionError("draft", err)
	}
	logger.Debug("draft completion received",
		logging.String(logging.FieldStep, "drafting"),
		logging.Int("prompt_tokens", completion.Usage.PromptTokens),
		logging.Int("completion_tokens", completion.Usage.CompletionTokens),
		logging.String("finish_reason", completion.FinishReason),
	)
	doc, err := jsonextract.ExtractObject(completion.Content)
	if err != nil {
		mem.Append(stageName, pipeline.KindObservation, "Réponse du modèle inexploitable : aucun objet JSON valide")
		return err
	}

	// Validating.
	rules := validation.Rules(s.docType)
	result := validation.Validate(doc, rules)
	mem.Append(stageName, pipeline.KindObservation,
		fmt.Sprintf("Validation structurelle : score %d/100, %d règle(s) en défaut", result.Score, len(result.Errors)))
	s.checkCoherence(mem, upstream, doc)

	// Repairing, at most once. The post-repair score is recorded but never
	// blocks the run.
	if !result.Valid {
		repaired, repairErr := s.repair(ctx, logger, mem, doc, completion.Content, draftMessages, result.Errors)
		if repairErr != nil {
			return repairErr
		}
		doc = repaired
		result = validation.Validate(doc, rules)
		mem.Append(stageName, pipeline.KindObservation,
			fmt.Sprintf("Score après correction : %d/100, %d règle(s) en défaut", result.Score, len(result.Errors)))
	}

	// Rendering.
	mem.Append(stageName, pipeline.KindAction,
		fmt.Sprintf("Conversion du document au format %s", strings.ToUpper(s.docType.Extension())))
	path, err := s.renderer.Render(ctx, doc, identity, mem.OutputDir())
	if err != nil {
		mem.Append(stageName, pipeline.KindObservation, "Échec de la conversion du document")
		return err
	}
	mem.SetFile(s.docType, path)

	// Done.
	mem.SetDocument(s.docType, doc)
	mem.Append(stageName, pipeline.KindResult,
		fmt.Sprintf("%s généré : %s (score %d/100)", s.docType.Title(), filepath.Base(path), result.Score))
	logger.Info("document generated",
		logging.String(logging.FieldDocument, stageName),
		logging.String("output_file", path),
		logging.Int("score", result.Score),
	)
	return nil
}

// prerequisite returns the upstream document this stage builds on. The aller
// stage has none; retour requires aller; cer prefers retour and falls back to
// aller, failing only when neither exists.
func (s *Stage) prerequisite(mem *pipeline.Memory) (map[string]any, error) {
	switch s.docType {
	case document.Retour:
		if doc, ok := mem.Document(document.Aller); ok {
			return doc, nil
		}
		return nil, services.Wrap(services.ErrMissingPrerequisite, string(s.docType), "plan",
			"prosit aller document required", nil)
	case document.CER:
		if doc, ok := mem.Document(document.Retour); ok {
			return doc, nil
		}
		if doc, ok := mem.Document(document.Aller); ok {
			return doc, nil
		}
		return nil, services.Wrap(services.ErrMissingPrerequisite, string(s.docType), "plan",
			"prosit retour or aller document required", nil)
	default:
		return nil, nil
	}
}

// plan performs the tolerant planning call. Any failure degrades to an empty
// plan; the run continues either way.
func (s *Stage) plan(ctx context.Context, logger *slog.Logger, mem *pipeline.Memory, identity pipeline.Identity, upstream map[string]any) map[string]any {
	stageName := string(s.docType)
	mem.Append(stageName, pipeline.KindAction, "Demande d'un plan de rédaction au modèle")

	messages := []llm.Message{
		{Role: "system", Content: planningPrompt(s.docType)},
		{Role: "user", Content: buildPlanningUser(identity, upstream)},
	}
	completion, err := s.completer.Complete(ctx, messages, s.planMaxTokens)
	if err != nil {
		logger.Warn("planning call failed, continuing with empty plan",
			logging.String(logging.FieldStep, "planning"), logging.Error(err))
		mem.Append(stageName, pipeline.KindObservation, "Plan indisponible, poursuite avec un plan vide")
		return map[string]any{}
	}
	plan, err := jsonextract.ExtractObject(completion.Content)
	if err != nil {
		logger.Warn("plan extraction failed, continuing with empty plan",
			logging.String(logging.FieldStep, "planning"), logging.Error(err))
		mem.Append(stageName, pipeline.KindObservation, "Plan inexploitable, poursuite avec un plan vide")
		return map[string]any{}
	}
	mem.Append(stageName, pipeline.KindObservation,
		fmt.Sprintf("Plan établi : %d axe(s) à approfondir", len(document.StringList(plan, "topicsToDeepen"))))
	return plan
}

// repair asks the model to fix the violated rules and shallow-merges the
// correction over the draft. Extraction failure here is fatal, matching the
// drafting call.
func (s *Stage) repair(ctx context.Context, logger *slog.Logger, mem *pipeline.Memory, doc map[string]any, rawDraft string, draftMessages []llm.Message, violations []string) (map[string]any, error) {
	stageName := string(s.docType)
	mem.Append(stageName, pipeline.KindAction,
		fmt.Sprintf("Correction demandée au modèle : %d règle(s) à corriger", len(violations)))

	messages := append(append([]llm.Message(nil), draftMessages...),
		llm.Message{Role: "assistant", Content: rawDraft},
		llm.Message{Role: "user", Content: buildRepairUser(violations, doc)},
	)
	completion, err := s.completer.Complete(ctx, messages, s.maxTokens)
	if err != nil {
		mem.Append(stageName, pipeline.KindObservation, "Échec de l'appel au modèle pendant la correction")
		return nil, s.wrapCompletionError("repair", err)
	}
	patch, err := jsonextract.ExtractObject(completion.Content)
	if err != nil {
		mem.Append(stageName, pipeline.KindObservation, "Correction du modèle inexploitable : aucun objet JSON valide")
		return nil, err
	}
	logger.Debug("repair completion received",
		logging.String(logging.FieldStep, "repairing"),
		logging.Int("patched_fields", len(patch)),
		logging.String("finish_reason", completion.FinishReason),
	)
	return document.Merge(doc, patch), nil
}

// checkCoherence compares the draft against its upstream document and records
// issues as warnings. Advisory only.
func (s *Stage) checkCoherence(mem *pipeline.Memory, upstream, doc map[string]any) {
	if upstream == nil {
		return
	}
	stageName := string(s.docType)
	result := coherence.Check(upstream, doc)
	if result.Coherent {
		mem.Append(stageName, pipeline.KindObservation, "Cohérence avec le document précédent : aucun écart")
		return
	}
	for _, issue := range result.Issues {
		mem.Warn(fmt.Sprintf("%s: %s", stageName, issue))
	}
	mem.Append(stageName, pipeline.KindObservation,
		fmt.Sprintf("Cohérence avec le document précédent : %d écart(s) signalé(s)", len(result.Issues)))
}

func (s *Stage) wrapCompletionError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if services.FailureKind(err) != "transient" {
		return err
	}
	return services.Wrap(services.ErrExternalTool, string(s.docType), operation, "llm completion", err)
}
