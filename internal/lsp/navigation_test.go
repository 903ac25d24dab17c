package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func openColorWorkspace(t *testing.T) (*testEnv, string, string) {
	t.Helper()

	env := newTestEnv(t)
	childURI := env.open("isp_hub75_color.spin2", colorSource)
	mainURI := env.open("main.spin2", mainSource)

	return env, mainURI, childURI
}

func TestDefinition_QualifiedMethod(t *testing.T) {
	env, mainURI, childURI := openColorWorkspace(t)

	result, err := Definition(env.ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: at(mainURI, 4, 9),
	})
	require.NoError(t, err)

	loc, ok := result.(protocol.Location)
	require.True(t, ok, "Definition returned %T", result)
	assert.Equal(t, childURI, loc.URI)
	assert.Equal(t, protocol.Position{Line: 5, Character: 4}, loc.Range.Start)
	assert.Equal(t, protocol.Position{Line: 5, Character: 8}, loc.Range.End)
}

func TestDefinition_ObjectFileName(t *testing.T) {
	env, mainURI, childURI := openColorWorkspace(t)

	result, err := Definition(env.ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: at(mainURI, 1, 14),
	})
	require.NoError(t, err)

	loc, ok := result.(protocol.Location)
	require.True(t, ok, "Definition returned %T", result)
	assert.Equal(t, childURI, loc.URI)
}

func TestDefinition_NothingThere(t *testing.T) {
	env, mainURI, _ := openColorWorkspace(t)

	result, err := Definition(env.ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: at(mainURI, 2, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = Definition(env.ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: at("file:///not/open.spin2", 0, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTypeDefinition(t *testing.T) {
	env := newTestEnv(t)
	childURI := env.open("isp_hub75_color.spin2", colorSource)
	mainURI := env.open("main.spin2", "OBJ\n  color : \"isp_hub75_color\"\nVAR\n  color.rgb pixel\n")

	result, err := TypeDefinition(env.ctx, &protocol.TypeDefinitionParams{
		TextDocumentPositionParams: at(mainURI, 3, 13),
	})
	require.NoError(t, err)

	loc, ok := result.(protocol.Location)
	require.True(t, ok, "TypeDefinition returned %T", result)
	assert.Equal(t, childURI, loc.URI)
	assert.Equal(t, protocol.UInteger(2), loc.Range.Start.Line)
}

func TestHover(t *testing.T) {
	env, mainURI, _ := openColorWorkspace(t)

	hover, err := Hover(env.ctx, &protocol.HoverParams{
		TextDocumentPositionParams: at(mainURI, 4, 9),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "PUB init()")
	assert.Contains(t, content.Value, "Initialise the color engine")
}

func TestHover_Unknown(t *testing.T) {
	env, mainURI, _ := openColorWorkspace(t)

	hover, err := Hover(env.ctx, &protocol.HoverParams{
		TextDocumentPositionParams: at(mainURI, 2, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestReferences(t *testing.T) {
	env, mainURI, childURI := openColorWorkspace(t)

	params := &protocol.ReferenceParams{
		TextDocumentPositionParams: at(childURI, 5, 5),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	}

	locs, err := References(env.ctx, params)
	require.NoError(t, err)
	require.Len(t, locs, 2)

	assert.Equal(t, childURI, locs[0].URI)
	assert.Equal(t, protocol.Position{Line: 5, Character: 4}, locs[0].Range.Start)
	assert.Equal(t, mainURI, locs[1].URI)
	assert.Equal(t, protocol.Position{Line: 4, Character: 8}, locs[1].Range.Start)

	params.Context.IncludeDeclaration = false

	locs, err = References(env.ctx, params)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, mainURI, locs[0].URI)
}

func TestDocumentHighlight(t *testing.T) {
	env, mainURI, _ := openColorWorkspace(t)

	highlights, err := DocumentHighlight(env.ctx, &protocol.DocumentHighlightParams{
		TextDocumentPositionParams: at(mainURI, 5, 3),
	})
	require.NoError(t, err)
	require.Len(t, highlights, 2)

	assert.Equal(t, protocol.Position{Line: 3, Character: 11}, highlights[0].Range.Start)
	assert.Equal(t, protocol.DocumentHighlightKindWrite, *highlights[0].Kind)
	assert.Equal(t, protocol.Position{Line: 5, Character: 2}, highlights[1].Range.Start)
	assert.Equal(t, protocol.DocumentHighlightKindRead, *highlights[1].Kind)
}

func TestDocumentLink(t *testing.T) {
	env, mainURI, childURI := openColorWorkspace(t)

	links, err := DocumentLink(env.ctx, &protocol.DocumentLinkParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: mainURI},
	})
	require.NoError(t, err)
	require.Len(t, links, 1)

	assert.Equal(t, childURI, *links[0].Target)
	assert.Equal(t, protocol.Position{Line: 1, Character: 11}, links[0].Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 26}, links[0].Range.End)
}

func TestDocumentLink_SkipsMissingFiles(t *testing.T) {
	env := newTestEnv(t)
	uri := env.open("main.spin2", missingObjects)

	links, err := DocumentLink(env.ctx, &protocol.DocumentLinkParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	assert.Empty(t, links)
}
