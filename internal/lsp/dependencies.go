package lsp

import (
	"log"

	"github.com/tliron/glsp"

	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// ObjectDependenciesMethod returns the OBJ and #include tree of a file.
const ObjectDependenciesMethod = "spin/getObjectDependencies"

// ObjectDependenciesParams are the parameters of ObjectDependenciesMethod.
type ObjectDependenciesParams struct {
	URI string `json:"uri"`
}

// ObjectDependencies handles spin/getObjectDependencies. The response has
// IsReady false while the file has not been parsed.
func ObjectDependencies(context *glsp.Context, params *ObjectDependenciesParams) (resolver.Response, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in ObjectDependencies")
		return resolver.Response{}, nil
	}

	// Prefer the path of the open document, which may differ in case
	path := workspace.URIToPath(params.URI)
	if doc, exists := srv.Documents().Get(params.URI); exists {
		path = doc.Path
	}

	log.Printf("Object dependencies request for %s\n", path)

	return srv.DependencyTree().Tree(path), nil
}
