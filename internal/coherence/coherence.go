// Package coherence compares two sequential documents of a run for topic,
// hypothesis-count, terminology, and vocabulary agreement. Issues are
// advisory: the pipeline records them as warnings and never aborts on them.
package coherence

import (
	"fmt"
	"strings"

	"prositor/internal/document"
	"prositor/internal/textutil"
)

const (
	// driftMinTokens gates the vocabulary check: both documents need this many
	// distinct content tokens before a similarity score means anything.
	driftMinTokens = 25
	driftThreshold = 0.1
)

// Result reports the outcome of one upstream/downstream comparison.
type Result struct {
	Coherent bool
	Issues   []string
}

// Check compares an upstream document with its downstream successor. A nil
// downstream limits the check to upstream presence; a nil upstream is the one
// incoherent case in that mode. The count and coverage checks only apply when
// the downstream document carries the relevant field, so a report-style
// document is not penalized for lacking restitution fields.
func Check(upstream, downstream map[string]any) Result {
	if upstream == nil {
		return Result{Issues: []string{"upstream document missing"}}
	}
	if downstream == nil {
		return Result{Coherent: true}
	}

	var issues []string

	upTopic := strings.TrimSpace(document.StringField(upstream, "topic"))
	downTopic := strings.TrimSpace(document.StringField(downstream, "topic"))
	upLower := strings.ToLower(upTopic)
	downLower := strings.ToLower(downTopic)
	if downLower != "" && downLower != upLower && !strings.Contains(downLower, firstRunes(upLower, 10)) {
		issues = append(issues, fmt.Sprintf("topic mismatch: upstream %q vs downstream %q", upTopic, downTopic))
	}

	if hypotheses := document.StringList(upstream, "hypotheses"); len(hypotheses) > 0 {
		if raw, ok := downstream["hypothesisValidations"]; ok {
			validated := len(document.AsRecords(raw))
			if validated < len(hypotheses) {
				issues = append(issues, fmt.Sprintf("only %d hypothesis validations cover %d hypotheses", validated, len(hypotheses)))
			}
		}
	}

	if keywords := document.StringList(upstream, "keywords"); len(keywords) > 0 {
		if raw, ok := downstream["definedTerms"]; ok {
			if uncovered := uncoveredKeywords(keywords, document.AsMap(raw)); len(uncovered) > 2 {
				named := uncovered
				if len(named) > 3 {
					named = named[:3]
				}
				issues = append(issues, fmt.Sprintf("keywords not addressed by defined terms: %s", strings.Join(named, ", ")))
			}
		}
	}

	upFP := contentFingerprint(bodyText(upstream))
	downFP := contentFingerprint(bodyText(downstream))
	if upFP.TokenCount() >= driftMinTokens && downFP.TokenCount() >= driftMinTokens {
		if sim := textutil.CosineSimilarity(upFP, downFP); sim < driftThreshold {
			issues = append(issues, fmt.Sprintf("downstream content shares almost no vocabulary with the upstream document (similarity %.2f)", sim))
		}
	}

	return Result{Coherent: len(issues) == 0, Issues: issues}
}

// bodyText concatenates the free-text fields of a document, whichever are
// present for its type.
func bodyText(doc map[string]any) string {
	var parts []string
	for _, key := range []string{"context", "problemStatement", "introduction", "solutionSummary", "conclusion"} {
		if text := strings.TrimSpace(document.StringField(doc, key)); text != "" {
			parts = append(parts, text)
		}
	}
	for _, section := range document.RecordList(doc, "sections") {
		if text := strings.TrimSpace(document.StringField(section, "content")); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// contentFingerprint fingerprints text with French function words removed, so
// the similarity score reflects subject vocabulary rather than grammar.
func contentFingerprint(text string) *textutil.Fingerprint {
	tokens := textutil.Tokenize(text)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, stop := frenchStopwords[token]; stop {
			continue
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return nil
	}
	return textutil.NewFingerprint(strings.Join(kept, " "))
}

// frenchStopwords lists function words excluded from drift fingerprints.
// Words under three runes never tokenize, so they are omitted.
var frenchStopwords = map[string]struct{}{
	"les": {}, "des": {}, "une": {}, "aux": {}, "est": {}, "sont": {},
	"pour": {}, "dans": {}, "avec": {}, "sans": {}, "sur": {}, "par": {},
	"qui": {}, "que": {}, "dont": {}, "mais": {}, "donc": {}, "car": {},
	"pas": {}, "plus": {}, "comme": {}, "entre": {}, "ses": {}, "ces": {},
	"cette": {}, "leur": {}, "leurs": {}, "ainsi": {}, "afin": {}, "être": {},
	"avoir": {}, "fait": {}, "ont": {}, "tout": {}, "tous": {}, "toutes": {},
	"notre": {}, "nos": {}, "votre": {}, "vos": {}, "puis": {}, "lors": {},
	"chaque": {}, "autre": {}, "autres": {}, "elle": {}, "elles": {},
	"ils": {}, "nous": {}, "vous": {}, "son": {}, "comment": {},
}

// uncoveredKeywords returns upstream keywords whose first 5 characters appear
// in no defined-term key, preserving upstream order.
func uncoveredKeywords(keywords []string, terms map[string]any) []string {
	termKeys := make([]string, 0, len(terms))
	for key := range terms {
		termKeys = append(termKeys, strings.ToLower(key))
	}

	var uncovered []string
	for _, keyword := range keywords {
		prefix := firstRunes(strings.ToLower(keyword), 5)
		if prefix == "" {
			continue
		}
		covered := false
		for _, key := range termKeys {
			if strings.Contains(key, prefix) {
				covered = true
				break
			}
		}
		if !covered {
			uncovered = append(uncovered, keyword)
		}
	}
	return uncovered
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
