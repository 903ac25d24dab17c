package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/document"
	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// DocumentSymbol handles the textDocument/documentSymbol request.
// It returns one symbol per section for the outline view. Section symbols hold
// the declarations made in them; methods hold their parameters, return values
// and locals.
func DocumentSymbol(context *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DocumentSymbol")
		return nil, nil
	}

	// Extract request details
	uri := params.TextDocument.URI
	log.Printf("DocumentSymbol request for %s\n", uri)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, nil
	}

	// Build the outline from the section blocks of the findings
	symbols := collectDocumentSymbols(f, newLineCache(srv), doc.Path)

	log.Printf("Found %d top-level symbols in %s\n", len(symbols), uri)

	return symbols, nil
}

// collectDocumentSymbols builds the outline of f.
func collectDocumentSymbols(f *findings.Findings, lines *lineCache, path string) []protocol.DocumentSymbol {
	blocks := f.Blocks()
	symbols := make([]protocol.DocumentSymbol, 0, len(blocks))

	globals := f.GlobalDeclarations()

	for _, block := range blocks {
		end := block.EndLine
		if end < block.StartLine {
			end = block.StartLine
		}

		fullRange := blockRange(lines.lines(path), block.StartLine, end)

		switch block.Kind {
		// Methods carry their parameters and locals as children
		case findings.BlockPub, findings.BlockPri:
			sym := methodSymbol(f, block, fullRange, lines, path)
			if sym != nil {
				symbols = append(symbols, *sym)
			}
		default:
			// Other sections list the declarations made inside them
			var children []protocol.DocumentSymbol

			for _, decl := range globals {
				// skip included names and methods, which have blocks of their own
				if decl.Origin != "" || decl.Kind == findings.KindMethod {
					continue
				}

				if decl.Range.Start.Line < block.StartLine || decl.Range.Start.Line > end {
					continue
				}

				children = append(children, declarationSymbol(decl, lines, path))
			}

			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           block.Kind.String(),
				Kind:           protocol.SymbolKindNamespace,
				Range:          fullRange,
				SelectionRange: blockRange(lines.lines(path), block.StartLine, block.StartLine),
				Children:       children,
			})
		}
	}

	return symbols
}

func methodSymbol(f *findings.Findings, block findings.BlockSpan, fullRange protocol.Range, lines *lineCache, path string) *protocol.DocumentSymbol {
	decl, ok := f.GlobalDeclaration(block.Name)
	if !ok || decl.Kind != findings.KindMethod {
		return nil
	}

	selection := lines.toRange(path, decl.Range)

	sym := &protocol.DocumentSymbol{
		Name:           decl.Name,
		Kind:           protocol.SymbolKindMethod,
		Range:          fullRange,
		SelectionRange: selection,
	}

	if decl.Signature != "" {
		detail := decl.Signature
		sym.Detail = &detail
	}

	for _, local := range f.LocalDeclarations(block.Name) {
		sym.Children = append(sym.Children, declarationSymbol(local, lines, path))
	}

	return sym
}

func declarationSymbol(decl *findings.Declaration, lines *lineCache, path string) protocol.DocumentSymbol {
	r := lines.toRange(path, decl.Range)

	sym := protocol.DocumentSymbol{
		Name:           decl.Name,
		Kind:           workspace.SymbolKindFor(decl.Kind),
		Range:          r,
		SelectionRange: r,
	}

	detail := decl.Kind.String()
	if decl.TypeName != "" {
		detail = decl.TypeName
	}

	sym.Detail = &detail

	return sym
}

// blockRange spans whole lines from start to end.
func blockRange(text []string, start, end int) protocol.Range {
	endChar := 0
	if end >= 0 && end < len(text) {
		endChar = document.UTF16Column(text[end], len(text[end]))
	}

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(max(start, 0)), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(max(end, 0)), Character: protocol.UInteger(endChar)},
	}
}
