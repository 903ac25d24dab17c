package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

func TestInitialize(t *testing.T) {
	srv := server.New()
	SetServer(srv)
	t.Cleanup(func() { SetServer(nil) })

	dir := t.TempDir()
	rootURI := workspace.PathToURI(dir)
	clientVersion := "1.0.0"

	params := &protocol.InitializeParams{
		ClientInfo: &struct {
			Name    string  `json:"name"`
			Version *string `json:"version,omitempty"`
		}{
			Name:    "test-client",
			Version: &clientVersion,
		},
		RootURI:      &rootURI,
		Capabilities: protocol.ClientCapabilities{},
	}

	result, err := Initialize(&glsp.Context{}, params)
	require.NoError(t, err)

	initResult, ok := result.(protocol.InitializeResult)
	require.True(t, ok, "Initialize returned wrong type: %T", result)

	require.NotNil(t, initResult.ServerInfo)
	assert.Equal(t, ServerName, initResult.ServerInfo.Name)
	require.NotNil(t, initResult.ServerInfo.Version)
	assert.Equal(t, Version, *initResult.ServerInfo.Version)

	caps := initResult.Capabilities

	syncOpts, ok := caps.TextDocumentSync.(protocol.TextDocumentSyncOptions)
	require.True(t, ok, "TextDocumentSync has wrong type: %T", caps.TextDocumentSync)
	assert.True(t, *syncOpts.OpenClose)
	assert.Equal(t, protocol.TextDocumentSyncKindIncremental, *syncOpts.Change)

	assert.NotNil(t, caps.HoverProvider)
	require.NotNil(t, caps.SignatureHelpProvider)
	assert.Equal(t, []string{"(", ","}, caps.SignatureHelpProvider.TriggerCharacters)
	assert.NotNil(t, caps.DefinitionProvider)
	assert.NotNil(t, caps.ReferencesProvider)
	assert.NotNil(t, caps.DocumentSymbolProvider)
	assert.NotNil(t, caps.FoldingRangeProvider)

	renameOpts, ok := caps.RenameProvider.(*protocol.RenameOptions)
	require.True(t, ok, "RenameProvider has wrong type: %T", caps.RenameProvider)
	assert.True(t, *renameOpts.PrepareProvider)

	tokens, ok := caps.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	require.True(t, ok, "SemanticTokensProvider has wrong type: %T", caps.SemanticTokensProvider)
	assert.Equal(t, srv.SemanticTokensLegend().TokenTypes, tokens.Legend.TokenTypes)

	assert.Equal(t, []string{dir}, srv.GetWorkspaceFolders())
}

func TestInitialize_WorkspaceFoldersWinOverRoot(t *testing.T) {
	root := "file:///ignored"
	params := &protocol.InitializeParams{
		RootURI: &root,
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: "file:///a", Name: "a"},
			{URI: "file:///b", Name: "b"},
		},
	}

	assert.Equal(t, []string{"file:///a", "file:///b"}, workspaceFolders(params))

	assert.Empty(t, workspaceFolders(&protocol.InitializeParams{}))
}

func TestInitialize_NoServer(t *testing.T) {
	SetServer(nil)

	result, err := Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)
	assert.IsType(t, protocol.InitializeResult{}, result)
}

func TestShutdown(t *testing.T) {
	srv := server.New()
	SetServer(srv)
	t.Cleanup(func() { SetServer(nil) })

	require.NoError(t, Shutdown(&glsp.Context{}))
	assert.True(t, srv.IsShuttingDown())
}

func TestSetTrace(t *testing.T) {
	srv := server.New()
	SetServer(srv)
	t.Cleanup(func() {
		SetServer(nil)
		protocol.SetTraceValue(protocol.TraceValueOff)
	})

	require.NoError(t, SetTrace(&glsp.Context{}, &protocol.SetTraceParams{Value: protocol.TraceValueVerbose}))
	assert.Equal(t, "verbose", srv.Config().Trace)
}
