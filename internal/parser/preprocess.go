package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// handleDirective consumes a flexspin preprocessor line (#include, #define,
// #ifdef ...). It reports true when the line was a directive, whether or not
// directives are enabled, so the line never reaches the section parsers. An
// enum start such as "#0, A, B" is not a directive.
func (p *parser) handleDirective(code string, line int) bool {
	start := SkipWhite(code, 0)
	if start+1 >= len(code) || code[start] != '#' || !isIdentStart(code[start+1]) {
		return false
	}

	directive, _ := leadingIdent(code[start+1:])

	switch strings.ToLower(directive) {
	case "include", "define", "undef", "ifdef", "ifndef", "if", "elseif", "elseifdef", "else", "endif", "error", "warn", "pragma":
	default:
		return false
	}

	if !p.opts.Flexspin {
		return true
	}

	cont := NewContinuedLines()
	cont.AddLine(code, line)
	cont.FinishLine()

	ll := logicalLine{cont: cont, text: cont.Line(), state: StateNothing}
	rest := start + 1 + len(directive)

	switch strings.ToLower(directive) {
	case "include":
		p.parseInclude(ll, rest)
	case "define":
		name, nameAt := leadingIdent(code[rest:])
		if name == "" {
			return true
		}

		p.declare(ll, name, rest+nameAt, findings.Declaration{
			Kind:      findings.KindDefine,
			Signature: strings.TrimSpace(code[start:]),
		})
	}

	return true
}

// parseInclude records `#include "file"` and merges the included file's global
// declarations when its findings are available.
func (p *parser) parseInclude(ll logicalLine, offset int) {
	text := ll.text

	open := strings.IndexByte(text[offset:], '"')
	if open == -1 {
		return
	}

	open += offset

	closeIdx := strings.IndexByte(text[open+1:], '"')
	if closeIdx == -1 {
		return
	}

	closeIdx += open + 1

	fileName := text[open+1 : closeIdx]
	if fileName == "" {
		return
	}

	p.f.RecordInclude(findings.IncludeImport{
		FileName:      fileName,
		IncludingFile: p.includingFile(),
		FileRange:     p.rangeAt(ll, open+1, len(fileName)),
	})

	included, ok := p.opts.Includes[strings.ToLower(fileName)]
	if !ok || included == nil {
		return
	}

	for _, decl := range included.GlobalDeclarations() {
		merged := *decl
		if merged.Origin == "" {
			merged.Origin = included.Path
		}

		p.f.RecordDeclaration(merged)
	}

	for _, s := range included.Structures() {
		p.f.RecordStructure(*s)
	}
}
