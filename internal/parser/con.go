package parser

import (
	"strconv"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// parseCon records the constants, enum members and structures on a CON line.
//
//	NAME = expr, OTHER = expr
//	#0, FIRST, SECOND[2], THIRD
//	STRUCT point(x, y)
func (p *parser) parseCon(ll logicalLine, offset int) {
	text := ll.text
	start := SkipWhite(text, offset)
	if start >= len(text) {
		return
	}

	if word, _ := leadingIdent(text[start:]); strings.EqualFold(word, "struct") {
		p.parseStruct(ll, start+len(word))
		return
	}

	for _, it := range splitTopLevel(text, start, len(text), ',') {
		if strings.HasPrefix(it.text, "#") {
			// enum start value, optionally with a [step]
			continue
		}

		if eq := indexAssignment(it.text); eq != -1 {
			name := strings.TrimSpace(it.text[:eq])
			if !IsIdentifier(name) {
				continue
			}

			value := strings.TrimSpace(it.text[eq+1:])
			p.declare(ll, name, it.offset, findings.Declaration{
				Kind:      findings.KindConstant,
				Signature: name + " = " + value,
			})

			continue
		}

		name, step := splitNameCount(it.text)
		if !IsIdentifier(name) {
			continue
		}

		sig := name
		if step != "" {
			sig += "[" + step + "]"
		}

		p.declare(ll, name, it.offset, findings.Declaration{
			Kind:      findings.KindEnumMember,
			Signature: sig,
		})
	}
}

// indexAssignment finds a single '=' that is not part of ==, <=, >= or :=.
func indexAssignment(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}

		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}

		if i > 0 && strings.ContainsRune("=<>:!", rune(s[i-1])) {
			continue
		}

		return i
	}

	return -1
}

// parseStruct records "STRUCT name(member, ...)". Members default to LONG and may
// name a structure type, including one from a child object ("obj.type").
func (p *parser) parseStruct(ll logicalLine, offset int) {
	text := ll.text

	name, nameAt := leadingIdent(text[offset:])
	if name == "" {
		return
	}

	nameAt += offset

	decl := p.declare(ll, name, nameAt, findings.Declaration{
		Kind:      findings.KindStructure,
		Signature: strings.TrimSpace(text[SkipWhite(text, 0):]),
	})
	if decl == nil {
		return
	}

	structure := findings.Structure{Name: name, Range: decl.Range}

	open := strings.IndexByte(text[nameAt:], '(')
	if open == -1 {
		p.f.RecordStructure(structure)
		return
	}

	open += nameAt

	closeIdx := matchingParen(text, open)
	if closeIdx == -1 {
		closeIdx = len(text)
	}

	for _, it := range splitTopLevel(text, open+1, closeIdx, ',') {
		member, ok := p.parseStructMember(ll, it)
		if ok {
			structure.Members = append(structure.Members, member)
		}
	}

	p.f.RecordStructure(structure)
}

func (p *parser) parseStructMember(ll logicalLine, it item) (findings.StructMember, bool) {
	words := SplitNonWhite(it.text)
	if len(words) == 0 {
		return findings.StructMember{}, false
	}

	last := words[len(words)-1]
	name, count := splitNameCount(last)

	// "LONG x [4]" puts the count in its own word
	if name == "" && len(words) > 1 {
		name, _ = splitNameCount(words[len(words)-2])
		words = words[:len(words)-1]
	}

	if !IsIdentifier(name) {
		return findings.StructMember{}, false
	}

	member := findings.StructMember{Name: name, Width: "LONG", Count: 1}

	if len(words) > 1 {
		typeWord := strings.TrimPrefix(words[0], "^")
		if IsStorageType(typeWord) {
			member.Width = strings.ToUpper(typeWord)
		} else {
			member.Width = ""
			member.TypeName = typeWord
		}
	}

	if count != "" {
		if n, err := strconv.Atoi(count); err == nil {
			member.Count = n
		} else {
			member.Count = 0
		}
	}

	nameAt := nameOffset(it.text, name)
	if nameAt == -1 {
		return findings.StructMember{}, false
	}

	member.Range = p.rangeAt(ll, it.offset+nameAt, len(name))

	return member, true
}

// matchingParen returns the index of the ')' closing the '(' at open.
func matchingParen(text string, open int) int {
	depth := 0

	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
