package validation

import (
	"strings"
	"unicode/utf8"

	"prositor/internal/document"
)

// Rules returns the ordered rule table for a document type. The tables are
// fixed; callers must not mutate the returned slice.
func Rules(t document.Type) []Rule {
	switch t {
	case document.Aller:
		return allerRules
	case document.Retour:
		return retourRules
	case document.CER:
		return cerRules
	}
	return nil
}

var allerRules = []Rule{
	{Field: "topic", Check: minRunes(3), Message: "topic: at least 3 characters required"},
	{Field: "keywords", Check: minItems(6), Message: "keywords: at least 6 entries required"},
	{Field: "context", Check: minRunes(80), Message: "context: at least 80 characters required"},
	{Field: "problemStatement", Check: minRunes(1), Message: "problemStatement: must not be empty"},
	{Field: "problemStatement", Check: endsWithQuestionMark, Message: "problemStatement: must end with a question mark"},
	{Field: "constraints", Check: minItems(2), Message: "constraints: at least 2 entries required"},
	{Field: "deliverables", Check: minItems(2), Message: "deliverables: at least 2 entries required"},
	{Field: "hypotheses", Check: minItems(3), Message: "hypotheses: at least 3 entries required"},
	{Field: "actionPlan", Check: minItems(4), Message: "actionPlan: at least 4 steps required"},
}

var retourRules = []Rule{
	{Field: "topic", Check: minRunes(3), Message: "topic: at least 3 characters required"},
	{Field: "definedTerms", Check: minKeys(4), Message: "definedTerms: at least 4 defined terms required"},
	{Field: "hypothesisValidations", Check: minRecords(3), Message: "hypothesisValidations: at least 3 entries required"},
	{Field: "hypothesisValidations", Check: recordsHave("hypothesis", "verdict"), Message: "hypothesisValidations: every entry needs a hypothesis and a verdict"},
	{Field: "solutionSummary", Check: minRunes(80), Message: "solutionSummary: at least 80 characters required"},
	{Field: "lessonsLearned", Check: minItems(2), Message: "lessonsLearned: at least 2 entries required"},
	{Field: "conclusion", Check: minRunes(40), Message: "conclusion: at least 40 characters required"},
}

var cerRules = []Rule{
	{Field: "topic", Check: minRunes(3), Message: "topic: at least 3 characters required"},
	{Field: "introduction", Check: minRunes(100), Message: "introduction: at least 100 characters required"},
	{Field: "sections", Check: minRecords(4), Message: "sections: at least 4 sections required"},
	{Field: "sections", Check: recordsHave("heading"), Message: "sections: every section needs a heading"},
	{Field: "sections", Check: recordFieldMinRunes("content", 120), Message: "sections: every section needs at least 120 characters of content"},
	{Field: "conclusion", Check: minRunes(60), Message: "conclusion: at least 60 characters required"},
	{Field: "references", Check: minItems(3), Message: "references: at least 3 references required"},
}

func minRunes(n int) func(any) bool {
	return func(v any) bool {
		return utf8.RuneCountInString(strings.TrimSpace(document.AsString(v))) >= n
	}
}

func minItems(n int) func(any) bool {
	return func(v any) bool {
		return len(document.AsStringList(v)) >= n
	}
}

func minKeys(n int) func(any) bool {
	return func(v any) bool {
		return len(document.AsMap(v)) >= n
	}
}

func minRecords(n int) func(any) bool {
	return func(v any) bool {
		return len(document.AsRecords(v)) >= n
	}
}

// recordsHave passes when every sub-record carries a non-empty value for each
// named field. An empty record list passes; the companion count rule flags it.
func recordsHave(fields ...string) func(any) bool {
	return func(v any) bool {
		for _, record := range document.AsRecords(v) {
			for _, field := range fields {
				if strings.TrimSpace(document.StringField(record, field)) == "" {
					return false
				}
			}
		}
		return true
	}
}

func recordFieldMinRunes(field string, n int) func(any) bool {
	return func(v any) bool {
		for _, record := range document.AsRecords(v) {
			if utf8.RuneCountInString(strings.TrimSpace(document.StringField(record, field))) < n {
				return false
			}
		}
		return true
	}
}

func endsWithQuestionMark(v any) bool {
	s := strings.TrimSpace(document.AsString(v))
	return strings.HasSuffix(s, "?")
}
