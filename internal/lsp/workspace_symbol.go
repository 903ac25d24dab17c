package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// maxWorkspaceSymbols limits the workspace/symbol response.
const maxWorkspaceSymbols = 100

// WorkspaceSymbol handles the workspace/symbol request.
// It returns symbols across the entire workspace that match the query string.
func WorkspaceSymbol(context *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in WorkspaceSymbol")
		return nil, nil
	}

	query := params.Query
	log.Printf("WorkspaceSymbol request with query: %q\n", query)

	index := srv.WorkspaceIndex()
	if index == nil {
		log.Println("Warning: workspace index not available")
		return nil, nil
	}

	// Search the parsed findings directly until the index is built
	var symbolLocations []workspace.SymbolLocation

	if !srv.IsIndexReady() && index.GetSymbolCount() == 0 {
		symbolLocations = workspace.FallbackSearch(srv.Findings(), query, maxWorkspaceSymbols)
	} else {
		symbolLocations = index.Search(query, maxWorkspaceSymbols)
	}

	log.Printf("Found %d workspace symbols matching query %q\n", len(symbolLocations), query)

	// Convert to LSP SymbolInformation
	symbols := make([]protocol.SymbolInformation, 0, len(symbolLocations))

	for _, symLoc := range symbolLocations {
		symbolInfo := protocol.SymbolInformation{
			Name:     symLoc.Name,
			Kind:     symLoc.Kind,
			Location: symLoc.Location,
		}

		if symLoc.ContainerName != "" {
			container := symLoc.ContainerName
			symbolInfo.ContainerName = &container
		}

		symbols = append(symbols, symbolInfo)
	}

	return symbols, nil
}
