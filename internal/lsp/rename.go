package lsp

import (
	"errors"
	"fmt"
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/rename"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// PrepareRename handles the textDocument/prepareRename request.
// It returns the range and current spelling of the symbol under the cursor,
// or nil when nothing renameable is there.
func PrepareRename(context *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in PrepareRename")
		return nil, errors.New("server instance not available")
	}

	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position

	log.Printf("PrepareRename request at %s line %d, character %d\n",
		uri, pos.Line, pos.Character)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, nil
	}

	// Check that a renameable symbol is under the cursor
	target, err := srv.Planner().Prepare(f, sourcePosition(doc.Text, pos))
	if errors.Is(err, rename.ErrNoReferences) {
		return nil, nil
	}

	if err != nil {
		log.Printf("Cannot rename at %d:%d: %v\n", pos.Line, pos.Character, err)
		return nil, err
	}

	return protocol.RangeWithPlaceholder{
		Range:       newLineCache(srv).toRange(doc.Path, target.Range),
		Placeholder: target.Name,
	}, nil
}

// Rename handles the textDocument/rename request.
// Method-local symbols are renamed within their method; global symbols are
// renamed in every file the rename policy allows editing.
func Rename(context *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in Rename")
		return nil, errors.New("server instance not available")
	}

	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position
	newName := params.NewName

	log.Printf("Rename request at %s line %d, character %d (newName=%s)\n",
		uri, pos.Line, pos.Character, newName)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, fmt.Errorf("document not found: %s", uri)
	}

	// Plan the edits, limited to the files the rename policy owns
	edits, err := srv.Planner().Plan(f, sourcePosition(doc.Text, pos), newName)
	if errors.Is(err, rename.ErrNoReferences) {
		log.Printf("Nothing to rename at %d:%d\n", pos.Line, pos.Character)
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return buildWorkspaceEdit(edits, newName, srv), nil
}

// buildWorkspaceEdit creates a WorkspaceEdit from an edit set. Edits are
// grouped by document, and open documents carry their version.
func buildWorkspaceEdit(edits rename.EditSet, newName string, srv *server.Server) *protocol.WorkspaceEdit {
	lines := newLineCache(srv)

	var documentChanges []any

	for _, path := range edits.Paths() {
		uri := workspace.PathToURI(path)

		var version *int32

		// Open documents carry their version
		if doc, exists := srv.Documents().GetByPath(path); exists {
			uri = doc.URI
			v := doc.Version
			version = &v
		}

		textEdits := make([]any, 0, len(edits[path]))
		for _, r := range edits[path] {
			textEdits = append(textEdits, protocol.TextEdit{
				Range:   lines.toRange(path, r),
				NewText: newName,
			})
		}

		documentChanges = append(documentChanges, protocol.TextDocumentEdit{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                version,
			},
			Edits: textEdits,
		})
	}

	log.Printf("Built WorkspaceEdit with %d document(s) and %d total edit(s)\n",
		len(documentChanges), edits.Count())

	return &protocol.WorkspaceEdit{DocumentChanges: documentChanges}
}
