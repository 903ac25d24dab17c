package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// DocumentLink handles the textDocument/documentLink request. Every OBJ and
// #include file name that resolves to a file becomes a link to it.
func DocumentLink(context *glsp.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DocumentLink")
		return nil, nil
	}

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	// Object files are searched next to the document, then in the include dirs
	lines := newLineCache(srv)
	extra := srv.Discoverer().IncludeDirsForFolder(f.Dir())

	var links []protocol.DocumentLink

	for _, link := range f.DocumentLinks() {
		target, found := resolver.ResolveFile(link.FileName, f.Dir(), extra)
		if !found {
			// missing files are reported as diagnostics instead
			continue
		}

		uri := workspace.PathToURI(target)
		links = append(links, protocol.DocumentLink{
			Range:  lines.toRange(doc.Path, link.Range),
			Target: &uri,
		})
	}

	return links, nil
}
