package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// parseVar records the variables on a VAR line:
//
//	LONG a, b[3]
//	point p, pts[4]
func (p *parser) parseVar(ll logicalLine, offset int) {
	text := ll.text
	start := SkipWhite(text, offset)
	if start >= len(text) {
		return
	}

	typeEnd := start
	for typeEnd < len(text) && text[typeEnd] != ' ' && text[typeEnd] != '\t' {
		typeEnd++
	}

	typeName := strings.TrimPrefix(text[start:typeEnd], "^")
	if IsAlignType(typeName) {
		// ALIGNL/ALIGNW may precede the storage type
		start = SkipWhite(text, typeEnd)
		typeEnd = start

		for typeEnd < len(text) && text[typeEnd] != ' ' && text[typeEnd] != '\t' {
			typeEnd++
		}

		typeName = strings.TrimPrefix(text[start:typeEnd], "^")
	}

	if typeEnd >= len(text) || !isTypeName(typeName) {
		return
	}

	if IsStorageType(typeName) {
		typeName = strings.ToUpper(typeName)
	}

	for _, it := range splitTopLevel(text, typeEnd, len(text), ',') {
		name, count := splitNameCount(it.text)
		if !IsIdentifier(name) {
			continue
		}

		sig := typeName + " " + name
		if count != "" {
			sig += "[" + count + "]"
		}

		p.declare(ll, name, it.offset, findings.Declaration{
			Kind:      findings.KindVariable,
			TypeName:  typeName,
			Count:     count,
			Signature: sig,
		})
	}
}

// isTypeName accepts storage types and structure type names, including the
// "obj.type" form.
func isTypeName(name string) bool {
	if IsStorageType(name) {
		return true
	}

	head, tail, qualified := strings.Cut(name, ".")
	if qualified {
		return IsIdentifier(head) && IsIdentifier(tail)
	}

	return IsIdentifier(name)
}
