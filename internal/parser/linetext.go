// Package parser scans Spin2 source text into findings.
//
// There is no grammar and no AST: every file is walked once, line by line, by a
// small section state machine, and declarations and references are extracted
// with table-driven lookups.
package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// ContinuationMarker joins a physical line with the next one.
const ContinuationMarker = "..."

const tabWidth = 8

// RemoveQuotedStrings replaces every "..." span with '#' runs of the same length
// and blanks single-line {...} comments, so columns stay aligned with the source.
func RemoveQuotedStrings(line string) string {
	buf := []byte(line)

	for i := 0; i < len(buf); i++ {
		if buf[i] != '"' {
			continue
		}

		end := strings.IndexByte(line[i+1:], '"')
		if end == -1 {
			break
		}

		end += i + 1
		for j := i; j <= end; j++ {
			buf[j] = '#'
		}

		i = end
	}

	for {
		open := strings.IndexByte(string(buf), '{')
		if open == -1 {
			break
		}

		closeIdx := strings.IndexByte(string(buf[open+1:]), '}')
		if closeIdx == -1 {
			break
		}

		closeIdx += open + 1
		for j := open; j <= closeIdx; j++ {
			buf[j] = ' '
		}
	}

	return string(buf)
}

// NonCommentRemainder returns the code part of line starting at offset: paired
// {...} and {{...}} spans are blanked, an unpaired brace opener drops the rest of
// the line, and a ' comment outside a string ends the code. The result keeps the
// original columns and is right-trimmed; a comment-only line yields "".
func NonCommentRemainder(offset int, line string) string {
	if offset >= len(line) {
		return ""
	}

	buf := []byte(line)
	for i := range offset {
		buf[i] = ' '
	}

	cut := len(buf)
	inString := false

scan:
	for i := offset; i < len(buf); i++ {
		c := buf[i]

		if inString {
			if c == '"' {
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '\'':
			cut = i
			break scan
		case '{':
			doc := i+1 < len(buf) && buf[i+1] == '{'
			closer := "}"
			if doc {
				closer = "}}"
			}

			end := strings.Index(string(buf[i+1:]), closer)
			if doc {
				end = strings.Index(string(buf[i+2:]), closer)
				if end != -1 {
					end += 1
				}
			}

			if end == -1 {
				cut = i
				break scan
			}

			last := i + 1 + end + len(closer) - 1
			for j := i; j <= last && j < len(buf); j++ {
				buf[j] = ' '
			}

			i = last
		}
	}

	remainder := strings.TrimRight(string(buf[:cut]), " \t")
	if strings.TrimSpace(remainder) == "" {
		return ""
	}

	return remainder
}

// SectionHeader reports whether line starts a new section and which one. The
// keyword must sit in column 0 and be followed by whitespace, a comment opener
// or end of line, so neither "  pub" nor "pub_count" starts a PUB block.
func SectionHeader(line string) (findings.BlockKind, bool) {
	if len(line) < 3 {
		return 0, false
	}

	if len(line) > 3 {
		switch line[3] {
		case ' ', '\t', '\'', '{':
		default:
			return 0, false
		}
	}

	switch strings.ToUpper(line[:3]) {
	case "CON":
		return findings.BlockCon, true
	case "VAR":
		return findings.BlockVar, true
	case "OBJ":
		return findings.BlockObj, true
	case "PUB":
		return findings.BlockPub, true
	case "PRI":
		return findings.BlockPri, true
	case "DAT":
		return findings.BlockDat, true
	}

	return 0, false
}

// Indent returns the display column of the first non-blank character, with
// tabs advancing to the next multiple of eight. A blank line returns -1.
func Indent(line string) int {
	col := 0

	for _, c := range line {
		switch c {
		case ' ':
			col++
		case '\t':
			col += tabWidth - col%tabWidth
		default:
			return col
		}
	}

	return -1
}

// IsContinued reports whether the code part of a line ends with the
// continuation marker.
func IsContinued(code string) bool {
	return strings.HasSuffix(strings.TrimRight(code, " \t"), ContinuationMarker)
}

// SplitNonWhite splits a line at spaces and tabs.
func SplitNonWhite(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
}

// SplitNonWhiteOperators splits at whitespace and the operator characters that
// may surround a name in a declaration.
func SplitNonWhiteOperators(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		switch r {
		case ' ', '\t', '+', '-', '*', '/', '<', '>', '[', ']', '(', ')', ',', '=', '#', '@', '^', '~', '!', '&', '|', '\\':
			return true
		}

		return false
	})
}

// SkipWhite returns the index of the first non-blank character at or after offset.
func SkipWhite(line string, offset int) int {
	for i := offset; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return i
		}
	}

	return len(line)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// IsIdentifier reports whether name is a valid Spin2 symbol name.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}

	for i := 1; i < len(name); i++ {
		if !isIdentChar(name[i]) {
			return false
		}
	}

	return true
}

// isLocalLabelName reports whether a label uses the PASM local-label markers.
func isLocalLabelName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, ":")
}
