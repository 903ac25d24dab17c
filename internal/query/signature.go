package query

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// Call is the method call enclosing a cursor.
type Call struct {
	Name      string
	Qualifier string
	// Argument is the zero-based index of the argument under the cursor.
	Argument int
}

// Signature describes a method for signature help.
type Signature struct {
	// Label is the method header without its local variables.
	Label string
	// Parameters holds the byte offsets [start, end) of each parameter in Label.
	Parameters [][2]int
	Doc        []string
	// Active is the parameter under the cursor, clamped to Parameters.
	Active int
}

// CallAt finds the innermost unclosed call before the byte column col of code.
// Strings and comments are ignored. Parenthesised expressions and [index]
// expressions count as a single argument of the call around them.
func CallAt(code string, col int) (Call, bool) {
	code = parser.NonCommentRemainder(0, parser.RemoveQuotedStrings(code))
	col = min(col, len(code))

	depth := 0
	argument := 0

	for i := col - 1; i >= 0; i-- {
		switch code[i] {
		case ')', ']':
			depth++
		case '[':
			if depth > 0 {
				depth--
				continue
			}

			argument = 0
		case '(':
			if depth > 0 {
				depth--
				continue
			}

			name, qualifier, ok := calleeBefore(code, i)
			if !ok {
				argument = 0
				continue
			}

			return Call{Name: name, Qualifier: qualifier, Argument: argument}, true
		case ',':
			if depth == 0 {
				argument++
			}
		}
	}

	return Call{}, false
}

// calleeBefore returns the method name in front of the '(' at open and the
// object instance qualifying it: name(, inst.name( or inst[i].name(.
func calleeBefore(code string, open int) (string, string, bool) {
	end := open
	for end > 0 && (code[end-1] == ' ' || code[end-1] == '\t') {
		end--
	}

	start := identStart(code, end)
	name := code[start:end]

	if !parser.IsIdentifier(name) {
		return "", "", false
	}

	if start == 0 || code[start-1] != '.' {
		return name, "", true
	}

	qualEnd := start - 1

	// inst[i].name(
	if qualEnd > 0 && code[qualEnd-1] == ']' {
		depth := 0

		for j := qualEnd - 1; j >= 0; j-- {
			if code[j] == ']' {
				depth++
			} else if code[j] == '[' {
				depth--
				if depth == 0 {
					qualEnd = j
					break
				}
			}
		}
	}

	qualifier := code[identStart(code, qualEnd):qualEnd]
	if !parser.IsIdentifier(qualifier) {
		return name, "", true
	}

	return name, qualifier, true
}

func identStart(code string, end int) int {
	start := end
	for start > 0 && isNameByte(code[start-1]) {
		start--
	}

	return start
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// SignatureOf builds the signature of a method declaration.
func SignatureOf(decl *findings.Declaration) (Signature, bool) {
	if decl == nil || decl.Kind != findings.KindMethod {
		return Signature{}, false
	}

	label := signatureOf(decl)

	open := strings.IndexByte(label, '(')

	// locals follow the '|' after the parameter list
	from := 0
	if open != -1 {
		from = open
	}

	if bar := strings.IndexByte(label[from:], '|'); bar != -1 {
		label = strings.TrimSpace(label[:from+bar])
	}

	sig := Signature{Label: label, Doc: decl.Doc}

	if open == -1 {
		return sig, true
	}

	closeIdx := strings.IndexByte(label[open:], ')')
	if closeIdx == -1 {
		closeIdx = len(label)
	} else {
		closeIdx += open
	}

	start := open + 1

	for i := open + 1; i <= closeIdx; i++ {
		if i < closeIdx && label[i] != ',' {
			continue
		}

		from, to := start, i
		for from < to && (label[from] == ' ' || label[from] == '\t') {
			from++
		}

		for to > from && (label[to-1] == ' ' || label[to-1] == '\t') {
			to--
		}

		if to > from {
			sig.Parameters = append(sig.Parameters, [2]int{from, to})
		}

		start = i + 1
	}

	return sig, true
}

// SignatureHelp resolves the method call enclosing the byte column of pos in
// code, the source of pos.Line. It fails when the cursor is not inside the
// argument list of a known method.
func (e *Engine) SignatureHelp(current *findings.Findings, code string, pos position.Position) (Signature, bool) {
	call, ok := CallAt(code, pos.Character)
	if !ok {
		return Signature{}, false
	}

	res, ok := e.Resolve(current, call.Name, call.Qualifier, pos)
	if !ok {
		return Signature{}, false
	}

	sig, ok := SignatureOf(res.Decl)
	if !ok {
		return Signature{}, false
	}

	sig.Active = min(call.Argument, max(len(sig.Parameters)-1, 0))

	return sig, true
}
