package jsonextract

import "strings"

// repairTruncated closes a JSON fragment whose bracket/brace structure is
// incomplete, assuming the text was cut by an output-length cap rather than
// corrupted mid-key. It replays the fragment tracking the stack of expected
// closers, trims a dangling comma, completes a bare "key": with an empty
// string, replaces an unterminated string literal with an empty placeholder,
// and appends the missing closers in LIFO order.
func repairTruncated(text string) string {
	var stack []byte
	inString := false
	escaped := false
	stringStart := -1
	end := len(text)

scan:
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
				if len(stack) == 0 {
					// A string closed outside any structure marks the end of
					// usable content.
					end = i + 1
					break scan
				}
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			stringStart = i
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	content := strings.TrimRight(text[:end], " \t\r\n")
	if !inString {
		content = strings.TrimSuffix(content, ",")
		content = strings.TrimRight(content, " \t\r\n")
	}
	if inString && stringStart >= 0 && stringStart < len(content) {
		content = content[:stringStart] + `""`
	}
	content = strings.TrimRight(content, " \t\r\n")
	if strings.HasSuffix(content, ":") {
		content += `""`
	}

	var b strings.Builder
	b.Grow(len(content) + len(stack))
	b.WriteString(content)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
