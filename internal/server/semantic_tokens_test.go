package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
)

func TestNewSemanticTokensLegend(t *testing.T) {
	legend := NewSemanticTokensLegend()

	assert.Equal(t, 5, legend.GetTokenTypeIndex(TokenTypeMethod))
	assert.Equal(t, -1, legend.GetTokenTypeIndex("class"))
	assert.Equal(t, uint32(3), legend.GetModifierMask(TokenModifierDeclaration, TokenModifierReadonly))
	assert.Equal(t, uint32(4), legend.GetModifierMask(TokenModifierLocal, "unknown"))

	proto := legend.ToProtocolLegend()
	assert.Equal(t, legend.TokenTypes, proto.TokenTypes)
	assert.Equal(t, legend.TokenModifiers, proto.TokenModifiers)
}

func findToken(tokens []SemanticToken, line, char uint32) (SemanticToken, bool) {
	for _, tok := range tokens {
		if tok.Line == line && tok.StartChar == char {
			return tok, true
		}
	}

	return SemanticToken{}, false
}

func TestCollectSemanticTokens(t *testing.T) {
	text := strings.Join([]string{
		"CON",          // 0
		"  LIMIT = 10", // 1
		"PUB go() : r", // 2
		"  r := LIMIT", // 3
	}, "\n")

	legend := NewSemanticTokensLegend()
	f := parser.Parse(text, parser.Options{Path: "/w/main.spin2"})

	tokens := CollectSemanticTokens(f, text, legend, nil)
	require.NotEmpty(t, tokens)

	decl, ok := findToken(tokens, 1, 2)
	require.True(t, ok)
	assert.Equal(t, uint32(5), decl.Length)
	assert.Equal(t, uint32(legend.GetTokenTypeIndex(TokenTypeVariable)), decl.TokenType)
	assert.Equal(t, legend.GetModifierMask(TokenModifierReadonly, TokenModifierDeclaration), decl.Modifiers)

	use, ok := findToken(tokens, 3, 7)
	require.True(t, ok)
	assert.Equal(t, legend.GetModifierMask(TokenModifierReadonly), use.Modifiers)

	method, ok := findToken(tokens, 2, 4)
	require.True(t, ok)
	assert.Equal(t, uint32(legend.GetTokenTypeIndex(TokenTypeMethod)), method.TokenType)

	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		assert.True(t, prev.Line < cur.Line || (prev.Line == cur.Line && prev.StartChar < cur.StartChar), "tokens are sorted")
	}
}

func TestCollectSemanticTokens_Qualified(t *testing.T) {
	text := strings.Join([]string{
		"OBJ",
		`  led : "led"`,
		"PUB go()",
		"  led.on()",
	}, "\n")

	legend := NewSemanticTokensLegend()
	f := parser.Parse(text, parser.Options{Path: "/w/main.spin2"})

	onDecl := &findings.Declaration{Name: "on", Kind: findings.KindMethod}
	child := func(qualifier, name string) (*findings.Declaration, bool) {
		if strings.EqualFold(qualifier, "led") && strings.EqualFold(name, "on") {
			return onDecl, true
		}

		return nil, false
	}

	without := CollectSemanticTokens(f, text, legend, nil)
	_, ok := findToken(without, 3, 6)
	assert.False(t, ok)

	with := CollectSemanticTokens(f, text, legend, child)
	tok, ok := findToken(with, 3, 6)
	require.True(t, ok)
	assert.Equal(t, uint32(legend.GetTokenTypeIndex(TokenTypeMethod)), tok.TokenType)
}

func TestEncodeSemanticTokens(t *testing.T) {
	assert.Equal(t, []uint32{}, EncodeSemanticTokens(nil))

	tokens := []SemanticToken{
		{Line: 0, StartChar: 4, Length: 3, TokenType: 1, Modifiers: 0},
		{Line: 0, StartChar: 10, Length: 2, TokenType: 2, Modifiers: 1},
		{Line: 2, StartChar: 1, Length: 4, TokenType: 0, Modifiers: 0},
	}

	assert.Equal(t, []uint32{
		0, 4, 3, 1, 0,
		0, 6, 2, 2, 1,
		2, 1, 4, 0, 0,
	}, EncodeSemanticTokens(tokens))
}

func TestDedupeTokens(t *testing.T) {
	tokens := []SemanticToken{
		{Line: 1, StartChar: 2, Length: 5},
		{Line: 1, StartChar: 2, Length: 5},
		{Line: 1, StartChar: 8, Length: 1},
	}

	assert.Len(t, dedupeTokens(tokens), 2)
}
