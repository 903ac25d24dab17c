package parser

import (
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// parseObj records an object instance:
//
//	name[count] : "file" | OVERRIDE = value, OTHER = value
func (p *parser) parseObj(ll logicalLine, offset int) {
	text := ll.text

	colon := indexTopLevel(text, offset, ':')
	if colon == -1 {
		return
	}

	instance, count := splitNameCount(text[offset:colon])
	if !IsIdentifier(instance) {
		return
	}

	quoteOpen := strings.IndexByte(text[colon:], '"')
	if quoteOpen == -1 {
		return
	}

	quoteOpen += colon

	quoteClose := strings.IndexByte(text[quoteOpen+1:], '"')
	if quoteClose == -1 {
		return
	}

	quoteClose += quoteOpen + 1

	fileName := text[quoteOpen+1 : quoteClose]
	if fileName == "" {
		return
	}

	var overrides []findings.Override

	if bar := indexTopLevel(text, quoteClose, '|'); bar != -1 {
		for _, it := range splitTopLevel(text, bar+1, len(text), ',') {
			eq := strings.IndexByte(it.text, '=')
			if eq == -1 {
				continue
			}

			overrides = append(overrides, findings.Override{
				Name:  strings.TrimSpace(it.text[:eq]),
				Value: strings.TrimSpace(it.text[eq+1:]),
			})
		}
	}

	nameAt := offset + strings.Index(text[offset:colon], instance)

	decl := p.declare(ll, instance, nameAt, findings.Declaration{
		Kind:      findings.KindObjectInstance,
		TypeName:  fileName,
		Count:     count,
		Signature: strings.TrimSpace(text[offset:]),
	})

	nameRange := p.rangeAt(ll, nameAt, len(instance))
	if decl != nil {
		nameRange = decl.Range
	}

	p.f.RecordObjectImport(findings.ObjectImport{
		InstanceName: instance,
		FileName:     fileName,
		Count:        count,
		Overrides:    overrides,
		NameRange:    nameRange,
		FileRange:    p.rangeAt(ll, quoteOpen+1, len(fileName)),
	})
}
