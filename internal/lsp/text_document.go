package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/document"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// DidOpen handles the textDocument/didOpen notification.
// This is sent when a document is opened in the editor.
func DidOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidOpen")
		return nil
	}

	// Extract request details
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	log.Printf("Document opened: %s (version %d, language %s, %d bytes)\n",
		uri, params.TextDocument.Version, params.TextDocument.LanguageID, len(text))

	doc := server.NewDocument(uri, text, params.TextDocument.Version, params.TextDocument.LanguageID)
	srv.Documents().Set(uri, doc)

	processAndPublish(context, srv, doc)

	return nil
}

// DidChange handles the textDocument/didChange notification.
// It supports both full and incremental sync modes.
func DidChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidChange")
		return nil
	}

	// Extract request details
	uri := params.TextDocument.URI

	doc, exists := srv.Documents().Get(uri)
	if !exists {
		log.Printf("Warning: Document not found for didChange: %s\n", uri)
		return nil
	}

	newText, err := document.ApplyContentChanges(doc.Text, params.ContentChanges)
	if err != nil {
		log.Printf("Error applying changes to %s: %v\n", uri, err)
	}

	log.Printf("Document changed: %s (version %d, %d change(s))\n",
		uri, params.TextDocument.Version, len(params.ContentChanges))

	updated := doc.WithText(newText, params.TextDocument.Version)
	srv.Documents().Set(uri, updated)

	processAndPublish(context, srv, updated)

	return nil
}

// DidSave handles the textDocument/didSave notification. The open buffer is
// already current, so only the diagnostics of the document and of the open
// documents depending on it are refreshed.
func DidSave(context *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidSave")
		return nil
	}

	doc, exists := srv.Documents().Get(params.TextDocument.URI)
	if !exists {
		return nil
	}

	publishForPaths(context, srv, append([]string{doc.Path}, srv.Processor().Enclosing(doc.Path)...))

	return nil
}

// DidClose handles the textDocument/didClose notification.
// This is sent when a document is closed in the editor.
func DidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidClose")
		return nil
	}

	// Extract request details
	uri := params.TextDocument.URI

	doc, exists := srv.Documents().Get(uri)
	srv.Documents().Delete(uri)

	if exists {
		srv.Processor().Forget(doc.Path)
		publishForPaths(context, srv, srv.Processor().ProcessEnclosing(doc.Path))
	}

	log.Printf("Document closed: %s\n", uri)

	// Send empty diagnostics to clear error markers in the editor
	// Only send notification if context is properly initialized (not in tests)
	if context != nil && context.Notify != nil {
		context.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: []protocol.Diagnostic{},
		})
	}

	return nil
}

// processAndPublish parses doc, publishes its diagnostics and refreshes the
// open documents that include or instantiate it.
func processAndPublish(context *glsp.Context, srv *server.Server, doc *server.Document) {
	srv.Processor().Process(doc.Path, doc.Text)

	paths := append([]string{doc.Path}, srv.Processor().ProcessEnclosing(doc.Path)...)
	publishForPaths(context, srv, paths)
}
