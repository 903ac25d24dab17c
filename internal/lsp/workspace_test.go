package lsp

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

func TestDidChangeConfiguration(t *testing.T) {
	env := newTestEnv(t)
	uri := env.open("main.spin2", missingObjects)

	err := DidChangeConfiguration(env.ctx, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{
			"spin2": map[string]any{
				"maxNumberOfReportedIssues": float64(1),
				"authorFilePrefix":          "isp",
			},
		},
	})
	require.NoError(t, err)

	cfg := env.srv.Config()
	assert.Equal(t, 1, cfg.MaxProblems)
	assert.Equal(t, "isp", cfg.AuthorFilePrefix)

	diags, _ := env.lastDiagnostics(uri)
	assert.Len(t, diags, 1, "open documents are republished with the new limit")
}

func TestDidChangeConfiguration_FlatSettings(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, DidChangeConfiguration(env.ctx, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{"maxNumberOfReportedIssues": float64(7)},
	}))
	assert.Equal(t, 7, env.srv.Config().MaxProblems)

	require.NoError(t, DidChangeConfiguration(env.ctx, &protocol.DidChangeConfigurationParams{Settings: "bogus"}))
	assert.Equal(t, 7, env.srv.Config().MaxProblems)
}

func TestDidChangeWatchedFiles(t *testing.T) {
	env := newTestEnv(t)
	env.srv.UpdateConfig(func(cfg *server.Config) { cfg.AutoDiscovery = false })

	mainURI := env.open("main.spin2", mainSource)

	diags, _ := env.lastDiagnostics(mainURI)
	require.Len(t, diags, 1)

	env.write("isp_hub75_color.spin2", colorSource)

	require.NoError(t, DidChangeWatchedFiles(env.ctx, &protocol.DidChangeWatchedFilesParams{
		Changes: []protocol.FileEvent{
			{URI: env.uri("isp_hub75_color.spin2"), Type: protocol.FileChangeTypeCreated},
			{URI: env.uri("notes.txt"), Type: protocol.FileChangeTypeCreated},
		},
	}))

	_, ok := env.srv.Findings().Get(env.path("isp_hub75_color.spin2"))
	assert.True(t, ok, "a created object file is parsed")

	diags, _ = env.lastDiagnostics(mainURI)
	assert.Empty(t, diags, "the parent no longer reports the missing object")

	require.NoError(t, os.Remove(env.path("isp_hub75_color.spin2")))
	require.NoError(t, DidChangeWatchedFiles(env.ctx, &protocol.DidChangeWatchedFilesParams{
		Changes: []protocol.FileEvent{
			{URI: env.uri("isp_hub75_color.spin2"), Type: protocol.FileChangeTypeDeleted},
		},
	}))

	_, ok = env.srv.Findings().Get(env.path("isp_hub75_color.spin2"))
	assert.False(t, ok)

	diags, _ = env.lastDiagnostics(mainURI)
	assert.Len(t, diags, 1, "the missing object is reported again")
}

func TestDidChangeWorkspaceFolders(t *testing.T) {
	env := newTestEnv(t)
	env.srv.UpdateConfig(func(cfg *server.Config) { cfg.AutoDiscovery = false })

	other := t.TempDir()

	require.NoError(t, DidChangeWorkspaceFolders(env.ctx, &protocol.DidChangeWorkspaceFoldersParams{
		Event: protocol.WorkspaceFoldersChangeEvent{
			Added:   []protocol.WorkspaceFolder{{URI: workspace.PathToURI(other), Name: "other"}},
			Removed: []protocol.WorkspaceFolder{{URI: workspace.PathToURI(env.dir), Name: "main"}},
		},
	}))

	assert.Equal(t, []string{other}, env.srv.GetWorkspaceFolders())

	env.srv.SetShuttingDown()
}
