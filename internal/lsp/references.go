package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// References handles the textDocument/references request.
// It returns locations of all references to the symbol at the given position,
// across the current file and every published file that can see it.
func References(context *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in References")
		return []protocol.Location{}, nil
	}

	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position
	// includeDeclaration decides whether the declaration itself is listed
	includeDecl := params.Context.IncludeDeclaration

	log.Printf("References request at %s line %d, character %d (includeDeclaration=%t)\n",
		uri, pos.Line, pos.Character, includeDecl)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return []protocol.Location{}, nil
	}

	// Identify the symbol under the cursor, qualified or not
	name, qualifier, ok := symbolAt(doc, f, pos)
	if !ok {
		return []protocol.Location{}, nil
	}

	// Locals stay in their method; globals are searched in every file that
	// declares them or instantiates the declaring object
	found := srv.Engine().References(f, name, qualifier, sourcePosition(doc.Text, pos), includeDecl)

	// Convert byte columns to UTF-16 positions, reading closed files once
	lines := newLineCache(srv)

	locations := make([]protocol.Location, 0, len(found))
	for _, loc := range found {
		locations = append(locations, lines.toLocation(loc.Path, loc.Range))
	}

	log.Printf("Found %d reference(s) to %s\n", len(locations), name)

	return locations, nil
}

// DocumentHighlight handles the textDocument/documentHighlight request.
// Declarations are marked as writes, every other occurrence as a read.
func DocumentHighlight(context *glsp.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DocumentHighlight")
		return nil, nil
	}

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	// Highlights never leave the current document
	found := srv.Engine().Highlights(f, sourcePosition(doc.Text, params.Position))
	if len(found) == 0 {
		return nil, nil
	}

	lines := newLineCache(srv)
	highlights := make([]protocol.DocumentHighlight, 0, len(found))

	for _, h := range found {
		// Only declarations count as writes
		kind := protocol.DocumentHighlightKindRead
		if h.IsDeclaration {
			kind = protocol.DocumentHighlightKindWrite
		}

		highlights = append(highlights, protocol.DocumentHighlight{
			Range: lines.toRange(doc.Path, h.Range),
			Kind:  &kind,
		})
	}

	return highlights, nil
}
