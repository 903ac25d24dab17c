package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// parseDat records the label at the start of a DAT or PASM line. method is set
// for inline PASM, whose labels are local to the enclosing method.
//
//	buffer    long    0[16]
//	.loop     djnz    count, #.loop
//	logo      file    "logo.bmp"
func (p *parser) parseDat(ll logicalLine, offset int, method string) {
	text := ll.text
	start := SkipWhite(text, offset)
	if start >= len(text) {
		return
	}

	words := SplitNonWhite(text[start:])
	if len(words) == 0 {
		return
	}

	label := words[0]

	local := isLocalLabelName(label)
	bare := strings.TrimLeft(label, ".:")

	if !IsIdentifier(bare) || (!local && IsPasmReserved(label)) || IsAlignType(label) {
		return
	}

	kind := findings.KindLabel
	typeName := ""

	if len(words) > 1 {
		next := strings.ToLower(words[1])

		switch {
		case IsStorageType(next):
			kind = findings.KindDatVariable
			typeName = strings.ToUpper(next)
		case next == "res":
			kind = findings.KindDatVariable
			typeName = "LONG"
		case next == "file":
			kind = findings.KindDatVariable
			typeName = "BYTE"
		}
	}

	// local labels repeat under different global labels; the first one is kept
	if local {
		if p.f.IsKnownName(method, label) {
			return
		}
	}

	p.declare(ll, label, start, findings.Declaration{
		Kind:       kind,
		Scope:      method,
		TypeName:   typeName,
		LocalLabel: local,
		Signature:  strings.TrimSpace(text[start:]),
	})
}
