package lsp

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/server"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

const mainSource = `OBJ
  color : "isp_hub75_color"

PUB go() | level
  color.init()
  level := color.MAX_LEVEL
`

const colorSource = `CON
  MAX_LEVEL = 255
  STRUCT rgb(BYTE r, BYTE g, BYTE b)

'' Initialise the color engine
PUB init()
  setup()

PRI setup()
`

// testEnv is a server over a temporary workspace folder with a context that
// records the notifications sent to the client.
type testEnv struct {
	t   *testing.T
	dir string
	srv *server.Server
	ctx *glsp.Context

	mu          sync.Mutex
	diagnostics map[string][]protocol.Diagnostic
	published   []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		t:           t,
		dir:         t.TempDir(),
		srv:         server.New(),
		diagnostics: make(map[string][]protocol.Diagnostic),
	}

	env.ctx = &glsp.Context{Notify: env.notify}
	env.srv.SetWorkspaceFolders([]string{env.dir})
	env.srv.OnRefresh(func(paths []string) { publishForPaths(env.ctx, env.srv, paths) })

	SetServer(env.srv)
	t.Cleanup(func() { SetServer(nil) })

	return env
}

func (e *testEnv) notify(method string, params any) {
	if method != protocol.ServerTextDocumentPublishDiagnostics {
		return
	}

	p := params.(*protocol.PublishDiagnosticsParams)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.diagnostics[p.URI] = p.Diagnostics
	e.published = append(e.published, p.URI)
}

// lastDiagnostics returns the diagnostics last published for uri.
func (e *testEnv) lastDiagnostics(uri string) ([]protocol.Diagnostic, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.diagnostics[uri]

	return d, ok
}

func (e *testEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

func (e *testEnv) uri(name string) string {
	return workspace.PathToURI(e.path(name))
}

// write saves a file in the workspace folder.
func (e *testEnv) write(name, text string) string {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(e.path(name), []byte(text), 0o644))

	return e.path(name)
}

// open saves a file and opens it in the editor.
func (e *testEnv) open(name, text string) string {
	e.t.Helper()
	e.write(name, text)

	uri := e.uri(name)
	require.NoError(e.t, DidOpen(e.ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "spin2",
			Version:    1,
			Text:       text,
		},
	}))

	return uri
}

func at(uri string, line, character int) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(character)},
	}
}
