package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// Hover handles the textDocument/hover request.
// This provides declaration information when the user hovers over a symbol.
func Hover(context *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in Hover")
		return nil, nil
	}

	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position

	log.Printf("Hover request at %s line %d, character %d\n",
		uri, pos.Line, pos.Character)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, nil
	}

	// Identify the symbol under the cursor, qualified or not
	name, qualifier, ok := symbolAt(doc, f, pos)
	if !ok {
		return nil, nil
	}

	// Resolve the symbol and render its declaration as markdown
	text, ok := srv.Engine().Hover(f, name, qualifier, sourcePosition(doc.Text, pos))
	if !ok {
		log.Printf("No hover information for %s\n", name)
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}, nil
}
