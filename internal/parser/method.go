package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// parseSignature records a method and its parameters, return values and locals:
//
//	PUB name(a, b) : r1, r2 | i, BYTE buf[16], point p
func (p *parser) parseSignature(ll logicalLine, offset int, private bool) {
	text := ll.text

	name, nameAt := leadingIdent(text[offset:])
	if name == "" {
		return
	}

	nameAt += offset

	decl := p.declare(ll, name, nameAt, findings.Declaration{
		Kind:      findings.KindMethod,
		Private:   private,
		Signature: strings.TrimSpace(text[SkipWhite(text, 0):]),
		Doc:       append([]string(nil), p.docLines...),
	})
	if decl == nil {
		return
	}

	p.docTarget = decl

	cursor := nameAt + len(name)

	if open := SkipWhite(text, cursor); open < len(text) && text[open] == '(' {
		closeIdx := matchingParen(text, open)
		if closeIdx == -1 {
			closeIdx = len(text)
		}

		for _, it := range splitTopLevel(text, open+1, closeIdx, ',') {
			p.declareLocal(ll, it, name, findings.KindParameter)
		}

		cursor = min(len(text), closeIdx+1)
	}

	bar := indexTopLevel(text, cursor, '|')

	returnsEnd := len(text)
	if bar != -1 {
		returnsEnd = bar
	}

	if colon := indexTopLevel(text[:returnsEnd], cursor, ':'); colon != -1 {
		for _, it := range splitTopLevel(text, colon+1, returnsEnd, ',') {
			p.declareLocal(ll, it, name, findings.KindReturnValue)
		}
	}

	if bar != -1 {
		for _, it := range splitTopLevel(text, bar+1, len(text), ',') {
			p.declareLocal(ll, it, name, findings.KindLocalVariable)
		}
	}
}

// declareLocal records one parameter, return value or local. A local may carry
// an alignment prefix, a storage type or a structure type, and a [count].
func (p *parser) declareLocal(ll logicalLine, it item, method string, kind findings.Kind) {
	words := SplitNonWhite(it.text)
	if len(words) == 0 {
		return
	}

	nameWord := words[len(words)-1]
	if strings.HasPrefix(nameWord, "[") && len(words) > 1 {
		nameWord = words[len(words)-2] + nameWord
		words = words[:len(words)-1]
	}

	name, count := splitNameCount(nameWord)
	if !IsIdentifier(name) {
		return
	}

	typeName := ""

	for _, word := range words[:len(words)-1] {
		word = strings.TrimPrefix(word, "^")
		if IsAlignType(word) {
			continue
		}

		if IsStorageType(word) {
			typeName = strings.ToUpper(word)
		} else if isTypeName(word) {
			typeName = word
		}
	}

	at := nameOffset(it.text, name)
	if at == -1 {
		return
	}

	nameAt := it.offset + at

	p.declare(ll, name, nameAt, findings.Declaration{
		Kind:      kind,
		Scope:     method,
		TypeName:  typeName,
		Count:     count,
		Signature: it.text,
	})
}
