package parser

import "strings"

// item is a trimmed piece of a line and its offset in that line.
type item struct {
	text   string
	offset int
}

// splitTopLevel splits text[from:to] at sep characters that are not nested in
// parentheses, brackets or strings.
func splitTopLevel(text string, from, to int, sep byte) []item {
	var items []item

	depth := 0
	inString := false
	start := from

	emit := func(end int) {
		raw := text[start:end]
		lead := len(raw) - len(strings.TrimLeft(raw, " \t"))

		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			items = append(items, item{text: trimmed, offset: start + lead})
		}
	}

	for i := from; i < to; i++ {
		c := text[i]

		if inString {
			if c == '"' {
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if c == sep && depth == 0 {
				emit(i)
				start = i + 1
			}
		}
	}

	emit(to)

	return items
}

// indexTopLevel finds the first sep outside parentheses, brackets and strings.
func indexTopLevel(text string, from int, sep byte) int {
	depth := 0
	inString := false

	for i := from; i < len(text); i++ {
		c := text[i]

		if inString {
			if c == '"' {
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if c == sep && depth == 0 {
				return i
			}
		}
	}

	return -1
}

// leadingIdent returns the identifier at the start of s (after blanks) and its
// offset within s.
func leadingIdent(s string) (string, int) {
	start := SkipWhite(s, 0)

	end := start
	for end < len(s) && isIdentChar(s[end]) {
		end++
	}

	if end == start || !isIdentStart(s[start]) {
		return "", start
	}

	return s[start:end], start
}

// nameOffset returns the offset of the last whole-word occurrence of name in
// text outside of [ ] and ( ), or -1. "byte buf[buflen]" yields the buf at 5,
// not the prefix of buflen.
func nameOffset(text, name string) int {
	found := -1
	depth := 0

	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			if depth > 0 {
				depth--
			}
		case isIdentStart(c) && (i == 0 || !isIdentChar(text[i-1])):
			end := identEnd(text, i)
			if depth == 0 && text[i:end] == name {
				found = i
			}

			i = end - 1
		}
	}

	return found
}

// splitNameCount splits "name[count]" into its parts.
func splitNameCount(s string) (string, string) {
	open := strings.IndexByte(s, '[')
	if open == -1 {
		return strings.TrimSpace(s), ""
	}

	count := s[open+1:]
	if closeIdx := strings.LastIndexByte(count, ']'); closeIdx != -1 {
		count = count[:closeIdx]
	}

	return strings.TrimSpace(s[:open]), strings.TrimSpace(count)
}
