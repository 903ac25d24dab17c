package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// SemanticTokensFull handles textDocument/semanticTokens/full requests.
// It returns semantic highlighting information for the entire document.
func SemanticTokensFull(context *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Printf("SemanticTokensFull request for: %s\n", params.TextDocument.URI)

	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Error: server instance not available")
		return nil, nil
	}

	// Retrieve the document and its published findings
	doc, f, ok := openDocument(srv, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	legend := srv.SemanticTokensLegend()
	if legend == nil {
		log.Println("Error: semantic tokens legend not available")
		return nil, nil
	}

	// Qualified names are classified by the declaration in the child object
	engine := srv.Engine()
	child := func(qualifier, name string) (*findings.Declaration, bool) {
		res, found := engine.Resolve(f, name, qualifier, position.Position{})
		if !found {
			return nil, false
		}

		return res.Decl, true
	}

	tokens := server.CollectSemanticTokens(f, doc.Text, legend, child)

	log.Printf("Collected %d semantic tokens for %s\n", len(tokens), params.TextDocument.URI)

	// Encode in the relative line/column format of the protocol
	return &protocol.SemanticTokens{
		Data: server.EncodeSemanticTokens(tokens),
	}, nil
}
