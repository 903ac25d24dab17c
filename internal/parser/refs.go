package parser

import (
	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// scanReferences walks the joined code lines collected by the declarations
// pass and records every use of a name that is declared in this file.
func (p *parser) scanReferences() {
	for _, ll := range p.logical {
		p.scanLineReferences(ll)
	}
}

func (p *parser) scanLineReferences(ll logicalLine) {
	text := RemoveQuotedStrings(ll.text)
	pasm := ll.state == StateDat || ll.state == StateDatPasm || ll.state == StateInlinePasm

	i := 0
	if ll.header {
		i = headerBodyOffset(text)
	}

	for i < len(text) {
		c := text[i]

		switch {
		case c == '$':
			i = skipNumber(text, i+1)
		case c == '%':
			i = skipNumber(text, i+1)
		case isDigit(c):
			i = skipNumber(text, i)
		case pasm && (c == '.' || c == ':') && i+1 < len(text) && isIdentStart(text[i+1]) &&
			(i == 0 || !isIdentChar(text[i-1]) && text[i-1] != ']' && text[i-1] != ')'):
			end := identEnd(text, i+1)
			p.recordUse(ll, text[i:end], i)
			i = end
		case isIdentStart(c):
			end := identEnd(text, i)

			if !isMemberAccess(text, i) {
				p.recordName(ll, text, i, end)
			}

			i = end
		default:
			i++
		}
	}
}

// recordName records the identifier text[start:end]. When it names an object
// instance and is followed by ".member" (optionally after an [index]), the
// member is recorded as well, qualified by the instance.
func (p *parser) recordName(ll logicalLine, text string, start, end int) {
	name := text[start:end]

	if _, isObject := p.f.ObjectImport(name); isObject {
		memberAt := qualifiedMember(text, end)
		if memberAt != -1 {
			member := text[memberAt:identEnd(text, memberAt)]
			p.addReference(ll, name, start, findings.Reference{})
			p.addReference(ll, member, memberAt, findings.Reference{Qualifier: name})

			return
		}
	}

	p.recordUse(ll, name, start)
}

// recordUse records a local reference when name is declared in the method in
// scope, else a global reference when name is declared globally.
func (p *parser) recordUse(ll logicalLine, name string, offset int) {
	if ll.method != "" {
		if _, ok := p.f.LocalDeclaration(ll.method, name); ok {
			p.addReference(ll, name, offset, findings.Reference{Scope: ll.method})
			return
		}
	}

	if _, ok := p.f.GlobalDeclaration(name); ok {
		p.addReference(ll, name, offset, findings.Reference{})
	}
}

func (p *parser) addReference(ll logicalLine, name string, offset int, ref findings.Reference) {
	pos, ok := ll.cont.PositionForOffset(offset)
	if !ok || p.f.IsDeclarationAt(pos) {
		return
	}

	ref.Range = position.NewRange(pos.Line, pos.Character, len(name))
	p.f.RecordReference(name, ref)
}

// qualifiedMember returns the offset of the member name in "[index].member"
// or ".member" starting at from, or -1.
func qualifiedMember(text string, from int) int {
	k := from

	if k < len(text) && text[k] == '[' {
		depth := 0

		for ; k < len(text); k++ {
			if text[k] == '[' {
				depth++
			} else if text[k] == ']' {
				depth--
				if depth == 0 {
					k++
					break
				}
			}
		}
	}

	if k+1 < len(text) && text[k] == '.' && isIdentStart(text[k+1]) {
		return k + 1
	}

	return -1
}

// isMemberAccess reports whether the identifier at i follows "x." or "x[..].",
// in which case it names a structure member or an object symbol whose
// qualifier was already handled.
func isMemberAccess(text string, i int) bool {
	if i < 2 || text[i-1] != '.' {
		return false
	}

	prev := text[i-2]

	return isIdentChar(prev) || prev == ']' || prev == ')'
}

func identEnd(text string, i int) int {
	for i < len(text) && isIdentChar(text[i]) {
		i++
	}

	return i
}

func skipNumber(text string, i int) int {
	for i < len(text) && (isIdentChar(text[i]) || text[i] == '%') {
		i++
	}

	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
