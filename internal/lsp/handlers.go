// Package lsp implements LSP protocol handlers.
//
// Handlers translate between LSP positions (UTF-16 columns) and the byte
// columns recorded in the findings, and delegate every question to the query
// engine, the rename planner or the dependency tree builder of the server.
package lsp

import (
	"encoding/json"
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/document"
	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// Handler dispatches the standard protocol methods plus the spin/ requests
// that protocol.Handler does not know about.
type Handler struct {
	protocol.Handler
}

// NewHandler returns a handler with every supported method wired.
func NewHandler() *Handler {
	return &Handler{
		Handler: protocol.Handler{
			Initialize:  Initialize,
			Initialized: Initialized,
			Shutdown:    Shutdown,
			SetTrace:    SetTrace,

			TextDocumentDidOpen:   DidOpen,
			TextDocumentDidChange: DidChange,
			TextDocumentDidClose:  DidClose,
			TextDocumentDidSave:   DidSave,

			TextDocumentHover:              Hover,
			TextDocumentSignatureHelp:      SignatureHelp,
			TextDocumentDefinition:         Definition,
			TextDocumentTypeDefinition:     TypeDefinition,
			TextDocumentReferences:         References,
			TextDocumentDocumentHighlight:  DocumentHighlight,
			TextDocumentDocumentSymbol:     DocumentSymbol,
			TextDocumentFoldingRange:       FoldingRange,
			TextDocumentDocumentLink:       DocumentLink,
			TextDocumentPrepareRename:      PrepareRename,
			TextDocumentRename:             Rename,
			TextDocumentSemanticTokensFull: SemanticTokensFull,

			WorkspaceSymbol:                   WorkspaceSymbol,
			WorkspaceDidChangeConfiguration:   DidChangeConfiguration,
			WorkspaceDidChangeWorkspaceFolders: DidChangeWorkspaceFolders,
			WorkspaceDidChangeWatchedFiles:    DidChangeWatchedFiles,
		},
	}
}

// Handle implements glsp.Handler.
func (h *Handler) Handle(context *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	if context.Method == ObjectDependenciesMethod {
		var params ObjectDependenciesParams
		if err = json.Unmarshal(context.Params, &params); err != nil {
			return nil, true, false, err
		}

		r, err = ObjectDependencies(context, &params)

		return r, true, true, err
	}

	return h.Handler.Handle(context)
}

var (
	// serverInstance holds the global server instance
	// This is set by SetServer and accessed by handlers
	serverInstance any
)

// SetServer sets the global server instance for handlers to access.
func SetServer(srv any) {
	serverInstance = srv
}

// openDocument returns the open document for uri and its published findings.
func openDocument(srv *server.Server, uri string) (*server.Document, *findings.Findings, bool) {
	doc, ok := srv.Documents().Get(uri)
	if !ok || doc == nil {
		log.Printf("Document not found: %s\n", uri)
		return nil, nil, false
	}

	f, ok := srv.Findings().Get(doc.Path)
	if !ok {
		log.Printf("No findings for document: %s\n", uri)
		return doc, nil, false
	}

	return doc, f, true
}

// sourcePosition converts an LSP position in text to a byte-column position.
func sourcePosition(text string, pos protocol.Position) position.Position {
	lines := parser.SplitLines(text)

	line := int(pos.Line)
	if line >= len(lines) {
		return position.New(line, int(pos.Character))
	}

	return position.New(line, document.ByteColumn(lines[line], int(pos.Character)))
}

// wordAt returns the identifier under an LSP position.
func wordAt(text string, pos protocol.Position) (document.Word, bool) {
	lines := parser.SplitLines(text)
	if int(pos.Line) >= len(lines) {
		return document.Word{}, false
	}

	line := lines[pos.Line]

	return document.WordAtPosition(line, document.ByteColumn(line, int(pos.Character)))
}

// symbolAt names the symbol under pos: the reference recorded there, or the
// word at the cursor when nothing was recorded.
func symbolAt(doc *server.Document, f *findings.Findings, pos protocol.Position) (name, qualifier string, ok bool) {
	if key, ref, found := f.ReferenceAt(sourcePosition(doc.Text, pos)); found {
		return key, ref.Qualifier, true
	}

	word, found := wordAt(doc.Text, pos)
	if !found {
		return "", "", false
	}

	return word.Text, word.Qualifier, true
}

// lineCache converts byte-column ranges of any file to LSP ranges. Open
// documents are read from the store, other files from disk, once per request.
type lineCache struct {
	srv   *server.Server
	files map[string][]string
}

func newLineCache(srv *server.Server) *lineCache {
	return &lineCache{srv: srv, files: make(map[string][]string)}
}

func (c *lineCache) lines(path string) []string {
	key := findings.NormalizePath(path)
	if lines, ok := c.files[key]; ok {
		return lines
	}

	var text string

	if doc, ok := c.srv.Documents().GetByPath(path); ok {
		text = doc.Text
	} else if loaded, err := workspace.LoadFile(path); err == nil {
		text = loaded
	}

	lines := parser.SplitLines(text)
	c.files[key] = lines

	return lines
}

func (c *lineCache) column(lines []string, line, byteCol int) protocol.UInteger {
	if line < 0 || line >= len(lines) {
		return protocol.UInteger(max(byteCol, 0))
	}

	return protocol.UInteger(document.UTF16Column(lines[line], byteCol))
}

func (c *lineCache) toRange(path string, r position.Range) protocol.Range {
	lines := c.lines(path)

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(max(r.Start.Line, 0)), Character: c.column(lines, r.Start.Line, r.Start.Character)},
		End:   protocol.Position{Line: protocol.UInteger(max(r.End.Line, 0)), Character: c.column(lines, r.End.Line, r.End.Character)},
	}
}

func (c *lineCache) toLocation(path string, r position.Range) protocol.Location {
	return protocol.Location{
		URI:   workspace.PathToURI(path),
		Range: c.toRange(path, r),
	}
}
