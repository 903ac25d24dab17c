package lsp

import (
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// DidChangeConfiguration handles workspace configuration changes from the client.
// Settings are read from the spin2 section:
//
//	{
//	  "spin2": {
//	    "maxNumberOfReportedIssues": 100,
//	    "highlightFlexspinDirectives": true,
//	    "centralLibraryPaths": ["~/spin2/library"]
//	  }
//	}
//
// Clients that send the section content directly are accepted as well.
func DidChangeConfiguration(context *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidChangeConfiguration")
		return nil
	}

	settingsMap, ok := params.Settings.(map[string]any)
	if !ok {
		log.Println("Configuration change without settings object, ignoring")
		return nil
	}

	if section, found := settingsMap[server.SettingsNamespace].(map[string]any); found {
		settingsMap = section
	}

	reparsed := srv.ApplySettings(settingsMap)

	log.Printf("Configuration updated, %d document(s) reparsed\n", len(reparsed))

	// every open document, since the problem limit may have changed too
	var paths []string

	for _, uri := range srv.Documents().List() {
		if doc, exists := srv.Documents().Get(uri); exists {
			paths = append(paths, doc.Path)
		}
	}

	publishForPaths(context, srv, paths)

	return nil
}

// DidChangeWorkspaceFolders handles changes to workspace folders.
// This notification is sent when workspace folders are added or removed.
func DidChangeWorkspaceFolders(context *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidChangeWorkspaceFolders")
		return nil
	}

	added := make([]string, 0, len(params.Event.Added))
	for _, folder := range params.Event.Added {
		log.Printf("Workspace folder added: %s (%s)\n", folder.Name, folder.URI)
		added = append(added, folder.URI)
	}

	removed := make([]string, 0, len(params.Event.Removed))
	for _, folder := range params.Event.Removed {
		log.Printf("Workspace folder removed: %s (%s)\n", folder.Name, folder.URI)
		removed = append(removed, folder.URI)
	}

	srv.ChangeWorkspaceFolders(added, removed)

	return nil
}

// DidChangeWatchedFiles handles file events reported by the client watcher.
// They are handled like the events of the server's own watcher.
func DidChangeWatchedFiles(context *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in DidChangeWatchedFiles")
		return nil
	}

	changes := make([]workspace.Change, 0, len(params.Changes))

	for _, event := range params.Changes {
		kind := workspace.ChangeWritten
		if event.Type == protocol.FileChangeTypeDeleted {
			kind = workspace.ChangeRemoved
		}

		changes = append(changes, workspace.Change{
			Path: workspace.URIToPath(event.URI),
			Kind: kind,
		})
	}

	srv.HandleFileChanges(changes)

	return nil
}
