// Package jsonextract recovers structured JSON from unreliable LLM text
// output: prose around the payload, code fences, trailing commas, and
// responses cut off by an output-length cap.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"strings"

	"prositor/internal/services"
)

// Extract locates and parses the first JSON object or array in raw text.
// It returns services.ErrNoJSONFound when no object or array start exists
// after fence stripping, and services.ErrUnparsableJSON when repair attempts
// are exhausted. Bare scalar roots are rejected; documents are always
// objects or arrays.
func Extract(raw string) (any, error) {
	text := stripFences(raw)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, fmt.Errorf("%w: no object or array start (payload snippet: %s)", services.ErrNoJSONFound, summarizeSnippet(raw))
	}
	text = text[start:]

	candidate, complete := cutBalanced(text)
	if !complete {
		candidate = repairTruncated(text)
	}
	candidate = stripTrailingCommas(candidate)

	var value any
	if err := json.Unmarshal([]byte(candidate), &value); err == nil {
		return value, nil
	}

	// Last resort: the balanced cut can still hide inner truncation, so run
	// the repair pass over the candidate itself and retry once.
	repaired := stripTrailingCommas(repairTruncated(candidate))
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, fmt.Errorf("%w: %v (payload snippet: %s)", services.ErrUnparsableJSON, err, summarizeSnippet(candidate))
	}
	return value, nil
}

// ExtractObject is Extract restricted to object roots, the shape every
// document and plan payload uses.
func ExtractObject(raw string) (map[string]any, error) {
	value, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object root (payload snippet: %s)", services.ErrUnparsableJSON, summarizeSnippet(raw))
	}
	return obj, nil
}

// stripFences removes triple-backtick markers anywhere in the text, together
// with an attached language tag. Content between fences is untouched; the
// object/array scan downstream bounds the actual payload.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	rest := raw
	for {
		idx := strings.Index(rest, "```")
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		rest = rest[idx+3:]
		tag := 0
		for tag < len(rest) && isTagByte(rest[tag]) {
			tag++
		}
		rest = rest[tag:]
	}
	return b.String()
}

func isTagByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// cutBalanced scans text starting at an opening brace/bracket, tracking
// nesting depth while skipping double-quoted strings (with backslash
// escapes). It returns the prefix ending where depth returns to zero on the
// closer matching the opener, or (text, false) when the input ends first.
func cutBalanced(text string) (string, bool) {
	var wantClose byte
	switch text[0] {
	case '{':
		wantClose = '}'
	case '[':
		wantClose = ']'
	default:
		return text, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 && c == wantClose {
				return text[:i+1], true
			}
		}
	}
	return text, false
}

// stripTrailingCommas removes commas followed only by whitespace and a
// closing brace/bracket, outside string literals.
func stripTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case ',':
			j := i + 1
			for j < len(text) && isSpaceByte(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func summarizeSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
