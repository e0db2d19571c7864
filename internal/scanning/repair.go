package scanning

import "strings"

// tailFields are optional top-level keys re-emitted as null when a truncated
// response is repaired, so decoders downstream see a stable shape.
var tailFields = []string{"subtotal", "discounts", "fees", "tip", "items_total"}

// Repair makes a best effort to turn raw model output into syntactically
// valid JSON. It never fails. Steps, in order: strip code-fence wrappers,
// trim, locate the outermost object, and when the text is truncated (the
// single shape produced by token-limited generation: cut off mid-string or
// mid-array) cut back to the last complete value and synthesize closures for
// any open array or object. This is not a general JSON repair algorithm.
func Repair(raw string) string {
	text := stripFences(raw)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	text = text[start:]

	if end := balancedEnd(text); end >= 0 {
		return text[:end+1]
	}
	return closeTruncated(text)
}

// stripFences removes markdown code-block wrappers if present.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// balancedEnd returns the index of the brace closing the outermost object,
// or -1 when the text never balances. Trailing text after the close is
// ignored by the caller.
func balancedEnd(text string) int {
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
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// closeTruncated cuts a truncated object back to the last complete value and
// appends closures for every container still open. Lost top-level fields are
// re-emitted as null.
func closeTruncated(text string) string {
	depth := 0
	inString := false
	escaped := false
	lastClose := -1 // end of the last fully-closed nested container
	lastComma := -1 // last comma separating complete top-level members

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
			if depth >= 1 {
				lastClose = i
			}
		case ',':
			if depth == 1 {
				lastComma = i
			}
		}
	}

	cut := lastClose
	if lastComma-1 > cut {
		cut = lastComma - 1
	}

	var kept string
	if cut < 0 {
		kept = "{"
	} else {
		kept = strings.TrimRight(text[:cut+1], ", \t\r\n")
	}

	var b strings.Builder
	b.WriteString(kept)
	stack := openStack(kept)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '[' {
			b.WriteByte(']')
			continue
		}
		if i == 0 {
			appendNullFields(&b, kept)
		}
		b.WriteByte('}')
	}
	return b.String()
}

// openStack returns the still-open container openers of a prefix that is
// known not to end inside a string.
func openStack(text string) []byte {
	var stack []byte
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
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// appendNullFields emits null for known optional tail fields lost to
// truncation, just before the outermost object closes.
func appendNullFields(b *strings.Builder, kept string) {
	needComma := !strings.HasSuffix(strings.TrimRight(b.String(), " \t\r\n"), "{")
	for _, f := range tailFields {
		if strings.Contains(kept, `"`+f+`"`) {
			continue
		}
		if needComma {
			b.WriteByte(',')
		}
		b.WriteString(`"` + f + `":null`)
		needComma = true
	}
}
