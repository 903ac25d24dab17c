package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/query"
	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// Definition handles the textDocument/definition request.
// On an OBJ or #include file name it jumps to the named file; on a symbol it
// jumps to the declaration, following object qualifiers into child files.
func Definition(context *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in Definition")
		return nil, nil
	}

	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position

	log.Printf("Definition request at %s line %d, character %d\n",
		uri, pos.Line, pos.Character)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, nil
	}

	// Convert the LSP position (UTF-16) to a byte column
	at := sourcePosition(doc.Text, pos)

	// On an OBJ or #include file name, jump to the top of that file
	for _, link := range f.DocumentLinks() {
		if !link.Range.Contains(at) {
			continue
		}

		// Search the folder of the document first, then its include directories
		target, found := resolver.ResolveFile(link.FileName, f.Dir(), srv.Discoverer().IncludeDirsForFolder(f.Dir()))
		if !found {
			log.Printf("Linked file not found: %s\n", link.FileName)
			return nil, nil
		}

		return protocol.Location{URI: workspace.PathToURI(target)}, nil
	}

	// Resolve the symbol; a qualified name continues in the child object
	res, ok := resolveAt(srv, doc, f, pos)
	if !ok {
		log.Printf("No definition found at %d:%d\n", pos.Line, pos.Character)
		return nil, nil
	}

	log.Printf("Definition of %s in %s\n", res.Decl.Name, res.Path)

	// The declaring file may be closed, so its lines come from disk
	return newLineCache(srv).toLocation(res.Path, res.Decl.Range), nil
}

// TypeDefinition handles the textDocument/typeDefinition request. It jumps
// from a variable or member of a structure type to the structure declaration.
func TypeDefinition(context *glsp.Context, params *protocol.TypeDefinitionParams) (any, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in TypeDefinition")
		return nil, nil
	}

	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position

	log.Printf("TypeDefinition request at %s line %d, character %d\n",
		uri, pos.Line, pos.Character)

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, nil
	}

	// Resolve the variable, parameter or member under the cursor first
	res, ok := resolveAt(srv, doc, f, pos)
	if !ok {
		return nil, nil
	}

	// Then follow its type name to the STRUCT declaration, possibly in a child
	structure, owner, ok := srv.Engine().StructureOf(res.Owner, res.Decl)
	if !ok {
		log.Printf("%s has no structure type\n", res.Decl.Name)
		return nil, nil
	}

	return newLineCache(srv).toLocation(owner.Path, structure.Range), nil
}

// resolveAt resolves the recorded reference under pos, falling back to the
// word at the cursor for positions the scanner recorded nothing for.
func resolveAt(srv *server.Server, doc *server.Document, f *findings.Findings, pos protocol.Position) (query.Result, bool) {
	// Convert the LSP position (UTF-16) to a byte column
	at := sourcePosition(doc.Text, pos)

	// The scanner recorded a reference here
	if res, ok := srv.Engine().ResolveAt(f, at); ok {
		return res, true
	}

	// Otherwise use the identifier text, e.g. on a name in a comment or an
	// unknown qualifier
	word, ok := wordAt(doc.Text, pos)
	if !ok {
		return query.Result{}, false
	}

	return srv.Engine().Resolve(f, word.Text, word.Qualifier, at)
}
