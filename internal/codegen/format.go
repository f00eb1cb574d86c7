package codegen

import "strings"

// Normalize tidies generated Rust text line by line: runs of interior
// spaces collapse to one, commas get exactly one trailing space and no
// leading space, and trailing whitespace is stripped. String literals and line comments pass
// through untouched, so the pass is safe to run over text that embeds
// user-written fragments.
func Normalize(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = normalizeLine(line)
	}
	return strings.Join(lines, "\n")
}

func normalizeLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(indent)

	runes := []rune(trimmed)
	var quote rune
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if quote != 0 {
			b.WriteRune(ch)
			if ch == '\\' && quote == '"' && i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch {
		case ch == '"' || ch == '`':
			quote = ch
			b.WriteRune(ch)

		case ch == '/' && i+1 < len(runes) && runes[i+1] == '/':
			b.WriteString(string(runes[i:]))
			i = len(runes)

		case ch == ',':
			b.WriteRune(',')
			for i+1 < len(runes) && runes[i+1] == ' ' {
				i++
			}
			if i+1 < len(runes) && runes[i+1] != ')' && runes[i+1] != ']' {
				b.WriteRune(' ')
			}

		case ch == ' ':
			for i+1 < len(runes) && runes[i+1] == ' ' {
				i++
			}
			if i+1 < len(runes) && runes[i+1] == ',' {
				continue
			}
			b.WriteRune(' ')

		default:
			b.WriteRune(ch)
		}
	}

	return strings.TrimRight(b.String(), " \t")
}
