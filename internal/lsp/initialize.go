package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/discovery"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// ServerName is reported to the client in the initialize result.
const ServerName = "spin2-lsp"

// Version is the server version, set by the command at startup.
var Version = "0.1.0"

// Initialize handles the LSP initialize request.
// This is the first request sent by the client and establishes the server capabilities.
func Initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if ok && srv != nil {
		srv.SetClientCapabilities(&params.Capabilities)
		srv.SetWorkspaceFolders(workspaceFolders(params))

		if context != nil && context.Notify != nil {
			srv.SetNotifier(discovery.Notifier(context.Notify))
			srv.OnRefresh(func(paths []string) {
				publishForPaths(context, srv, paths)
			})
		}

		if err := srv.LoadWorkspaceConfig(); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	} else {
		log.Println("Warning: server instance not available in Initialize")
	}

	changeKind := protocol.TextDocumentSyncKindIncremental
	trueVal := true
	falseVal := false

	legend := server.NewSemanticTokensLegend()
	if ok && srv != nil {
		legend = srv.SemanticTokensLegend()
	}

	capabilities := protocol.ServerCapabilities{
		// Text document synchronization
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: &trueVal,
			Change:    &changeKind,
			WillSave:  &falseVal,
			Save: &protocol.SaveOptions{
				IncludeText: &falseVal,
			},
		},

		HoverProvider: &trueVal,

		// Method parameters inside calls
		SignatureHelpProvider: &protocol.SignatureHelpOptions{
			TriggerCharacters:   []string{"(", ","},
			RetriggerCharacters: []string{")"},
		},

		DefinitionProvider:        &trueVal,
		TypeDefinitionProvider:    &trueVal,
		ReferencesProvider:        &trueVal,
		DocumentHighlightProvider: &trueVal,

		// Document symbols (outline view)
		DocumentSymbolProvider: &trueVal,

		// Workspace symbols (global search)
		WorkspaceSymbolProvider: &trueVal,

		FoldingRangeProvider: &trueVal,

		// OBJ and #include file names
		DocumentLinkProvider: &protocol.DocumentLinkOptions{
			ResolveProvider: &falseVal,
		},

		// Rename support
		RenameProvider: &protocol.RenameOptions{
			PrepareProvider: &trueVal,
		},

		// Semantic tokens (semantic highlighting)
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: legend.ToProtocolLegend(),
			Full:   &trueVal,
		},

		Workspace: &protocol.ServerCapabilitiesWorkspace{
			WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
				Supported:           &trueVal,
				ChangeNotifications: &protocol.BoolOrString{Value: true},
			},
		},
	}

	result := protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    ServerName,
			Version: &Version,
		},
	}

	return result, nil
}

// workspaceFolders returns the folder URIs of the initialize request, falling
// back to the root URI for clients without workspace folder support.
func workspaceFolders(params *protocol.InitializeParams) []string {
	folders := make([]string, 0, len(params.WorkspaceFolders))
	for _, folder := range params.WorkspaceFolders {
		folders = append(folders, folder.URI)
	}

	if len(folders) == 0 && params.RootURI != nil && *params.RootURI != "" {
		folders = append(folders, *params.RootURI)
	}

	return folders
}

// Initialized handles the initialized notification from the client.
// Workspace indexing, include discovery and the file watcher start here.
func Initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in Initialized")
		return nil
	}

	srv.StartBackgroundWork()

	return nil
}

// Shutdown handles the shutdown request.
// The client sends this to ask the server to shut down gracefully.
func Shutdown(context *glsp.Context) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		return nil
	}

	srv.SetShuttingDown()
	log.Println("Server shutting down")

	return nil
}

// SetTrace handles $/setTrace.
func SetTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	if srv, ok := serverInstance.(*server.Server); ok && srv != nil {
		srv.UpdateConfig(func(cfg *server.Config) {
			cfg.Trace = string(params.Value)
		})
	}

	return nil
}
