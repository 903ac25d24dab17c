package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// FoldingRange handles the textDocument/foldingRange request.
func FoldingRange(context *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in FoldingRange")
		return nil, nil
	}

	// Retrieve the document and its published findings
	_, f, ok := openDocument(srv, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	spans := f.FoldSpans()
	ranges := make([]protocol.FoldingRange, 0, len(spans))

	for _, span := range spans {
		// A single line has nothing to fold
		if span.End.Line <= span.Start.Line {
			continue
		}

		fr := protocol.FoldingRange{
			StartLine: protocol.UInteger(span.Start.Line),
			EndLine:   protocol.UInteger(span.End.Line),
		}

		// Comment blocks fold as comments, everything else as a region
		kind := string(protocol.FoldingRangeKindRegion)
		if span.Kind == findings.FoldComment {
			kind = string(protocol.FoldingRangeKindComment)
		}

		fr.Kind = &kind

		ranges = append(ranges, fr)
	}

	return ranges, nil
}
