package server

import (
	"sort"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/document"
	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
)

// SemanticToken represents a raw semantic token with position and classification.
type SemanticToken struct {
	Line      uint32 // 0-based line number
	StartChar uint32 // 0-based start character, UTF-16
	Length    uint32 // Token length, UTF-16
	TokenType uint32 // Index into legend.TokenTypes
	Modifiers uint32 // Bit flags for modifiers
}

// SemanticTokensLegend defines the token types and modifiers used by the server.
// The legend must remain consistent across all requests to ensure proper highlighting.
type SemanticTokensLegend struct {
	// TokenTypes is an ordered array of token type strings.
	// The index in this array is used to encode token types in the semantic tokens response.
	TokenTypes []string

	// TokenModifiers is an ordered array of token modifier strings.
	// Modifiers are encoded as bit flags where each index represents a bit position.
	TokenModifiers []string
}

// NewSemanticTokensLegend creates the legend for Spin2 symbols.
func NewSemanticTokensLegend() *SemanticTokensLegend {
	return &SemanticTokensLegend{
		TokenTypes: []string{
			// Index 0: namespace - object instances
			TokenTypeNamespace,
			// Index 1: type - structure types
			TokenTypeType,
			// Index 2: parameter - method parameters and return values
			TokenTypeParameter,
			// Index 3: variable - VAR, DAT and local variables, constants
			TokenTypeVariable,
			// Index 4: enumMember - enumerated constants
			TokenTypeEnumMember,
			// Index 5: method - PUB and PRI methods
			TokenTypeMethod,
			// Index 6: label - DAT labels
			TokenTypeLabel,
			// Index 7: macro - #define names
			TokenTypeMacro,
		},
		TokenModifiers: []string{
			TokenModifierDeclaration,
			TokenModifierReadonly,
			TokenModifierLocal,
		},
	}
}

// ToProtocolLegend converts the legend to the LSP protocol format.
func (l *SemanticTokensLegend) ToProtocolLegend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes:     l.TokenTypes,
		TokenModifiers: l.TokenModifiers,
	}
}

// GetTokenTypeIndex returns the index of a token type in the legend.
// Returns -1 if the token type is not found.
func (l *SemanticTokensLegend) GetTokenTypeIndex(tokenType string) int {
	for i, t := range l.TokenTypes {
		if t == tokenType {
			return i
		}
	}

	return -1
}

// GetModifierMask returns the bit mask for the given modifiers.
// Multiple modifiers can be combined using bitwise OR.
func (l *SemanticTokensLegend) GetModifierMask(modifiers ...string) uint32 {
	var mask uint32

	for _, modifier := range modifiers {
		for i, m := range l.TokenModifiers {
			if m == modifier {
				mask |= 1 << uint32(i)
				break
			}
		}
	}

	return mask
}

// Token type constants for easier reference
const (
	TokenTypeNamespace  = "namespace"
	TokenTypeType       = "type"
	TokenTypeParameter  = "parameter"
	TokenTypeVariable   = "variable"
	TokenTypeEnumMember = "enumMember"
	TokenTypeMethod     = "method"
	TokenTypeLabel      = "label"
	TokenTypeMacro      = "macro"
)

// Token modifier constants for easier reference
const (
	TokenModifierDeclaration = "declaration"
	TokenModifierReadonly    = "readonly"
	TokenModifierLocal       = "local"
)

// tokenClass maps a declaration kind to a token type and extra modifiers.
func tokenClass(kind findings.Kind) (string, []string) {
	switch kind {
	case findings.KindConstant:
		return TokenTypeVariable, []string{TokenModifierReadonly}
	case findings.KindEnumMember:
		return TokenTypeEnumMember, []string{TokenModifierReadonly}
	case findings.KindDefine:
		return TokenTypeMacro, nil
	case findings.KindLabel:
		return TokenTypeLabel, nil
	case findings.KindMethod:
		return TokenTypeMethod, nil
	case findings.KindObjectInstance:
		return TokenTypeNamespace, nil
	case findings.KindStructure:
		return TokenTypeType, nil
	case findings.KindParameter, findings.KindReturnValue:
		return TokenTypeParameter, []string{TokenModifierLocal}
	case findings.KindLocalVariable:
		return TokenTypeVariable, []string{TokenModifierLocal}
	}

	return TokenTypeVariable, nil
}

// ChildDeclaration looks up a public declaration of the object behind a
// qualifier. It may be nil; qualified references are then skipped.
type ChildDeclaration func(qualifier, name string) (*findings.Declaration, bool)

// CollectSemanticTokens classifies every recorded reference of f. Byte columns
// are converted to UTF-16 columns with text.
func CollectSemanticTokens(f *findings.Findings, text string, legend *SemanticTokensLegend, child ChildDeclaration) []SemanticToken {
	if f == nil || legend == nil {
		return nil
	}

	lines := parser.SplitLines(text)

	var tokens []SemanticToken

	for _, name := range f.ReferencedNames() {
		for _, ref := range f.References(name) {
			decl, ok := declarationFor(f, name, ref, child)
			if !ok {
				continue
			}

			start := ref.Range.Start
			if start.Line < 0 || start.Line >= len(lines) || ref.Range.End.Line != start.Line {
				continue
			}

			tokenType, modifiers := tokenClass(decl.Kind)
			if ref.IsDeclaration {
				modifiers = append(modifiers, TokenModifierDeclaration)
			}

			typeIndex := legend.GetTokenTypeIndex(tokenType)
			if typeIndex < 0 {
				continue
			}

			line := lines[start.Line]
			from := document.UTF16Column(line, start.Character)
			to := document.UTF16Column(line, ref.Range.End.Character)

			if to <= from {
				continue
			}

			tokens = append(tokens, SemanticToken{
				Line:      uint32(start.Line),
				StartChar: uint32(from),
				Length:    uint32(to - from),
				TokenType: uint32(typeIndex),
				Modifiers: legend.GetModifierMask(modifiers...),
			})
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].Line != tokens[j].Line {
			return tokens[i].Line < tokens[j].Line
		}

		return tokens[i].StartChar < tokens[j].StartChar
	})

	return dedupeTokens(tokens)
}

func declarationFor(f *findings.Findings, name string, ref findings.Reference, child ChildDeclaration) (*findings.Declaration, bool) {
	if ref.Qualifier != "" {
		if child == nil {
			return nil, false
		}

		return child(ref.Qualifier, name)
	}

	if ref.Scope != "" {
		if decl, ok := f.LocalDeclaration(ref.Scope, name); ok {
			return decl, true
		}
	}

	return f.GlobalDeclaration(name)
}

// dedupeTokens drops tokens starting at the same place as the one before.
// The client rejects overlapping tokens.
func dedupeTokens(tokens []SemanticToken) []SemanticToken {
	out := tokens[:0]

	for i, tok := range tokens {
		if i > 0 && tok.Line == out[len(out)-1].Line && tok.StartChar < out[len(out)-1].StartChar+out[len(out)-1].Length {
			continue
		}

		out = append(out, tok)
	}

	return out
}

// EncodeSemanticTokens converts sorted tokens to the LSP relative encoding.
func EncodeSemanticTokens(tokens []SemanticToken) []uint32 {
	if len(tokens) == 0 {
		return []uint32{}
	}

	encoded := make([]uint32, 0, len(tokens)*5)

	var prevLine, prevChar uint32

	for _, token := range tokens {
		deltaLine := token.Line - prevLine

		deltaChar := token.StartChar
		if deltaLine == 0 {
			deltaChar = token.StartChar - prevChar
		}

		encoded = append(encoded,
			deltaLine,
			deltaChar,
			token.Length,
			token.TokenType,
			token.Modifiers,
		)

		prevLine = token.Line
		prevChar = token.StartChar
	}

	return encoded
}
