package query

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// Hover returns markdown describing the symbol, or false when it cannot be
// resolved.
func (e *Engine) Hover(current *findings.Findings, name, qualifier string, pos position.Position) (string, bool) {
	res, ok := e.Resolve(current, name, qualifier, pos)
	if !ok {
		return "", false
	}

	return e.describe(res, qualifier), true
}

func (e *Engine) describe(res Result, qualifier string) string {
	decl := res.Decl

	var sb strings.Builder

	sb.WriteString("```spin2\n")
	sb.WriteString(signatureOf(decl))
	sb.WriteString("\n```\n")

	sb.WriteString("\n")
	sb.WriteString(scopeText(decl, qualifier, res.Path))
	sb.WriteString("\n")

	if s, owner, ok := e.StructureOf(res.Owner, decl); ok {
		sb.WriteString("\n")
		sb.WriteString(e.structureLayout(s, owner, 0))
	}

	if decl.Kind == findings.KindObjectInstance {
		fmt.Fprintf(&sb, "\nObject file: `%s`\n", decl.TypeName)
	}

	if len(decl.Doc) > 0 {
		sb.WriteString("\n---\n\n")
		sb.WriteString(strings.Join(decl.Doc, "\n"))
		sb.WriteString("\n")
	}

	return sb.String()
}

func signatureOf(decl *findings.Declaration) string {
	if decl.Signature != "" {
		return decl.Signature
	}

	return decl.Name
}

func scopeText(decl *findings.Declaration, qualifier, path string) string {
	kind := decl.Kind.String()

	switch {
	case decl.Scope != "":
		return fmt.Sprintf("%s of method `%s`", kind, decl.Scope)
	case qualifier != "":
		return fmt.Sprintf("%s of object `%s` (%s)", kind, qualifier, filepath.Base(path))
	case decl.Origin != "":
		return fmt.Sprintf("%s included from `%s`", kind, filepath.Base(decl.Origin))
	}

	return "global " + kind
}

// structureLayout lists the members of s, expanding nested structure members
// one level per call.
func (e *Engine) structureLayout(s *findings.Structure, owner *findings.Findings, depth int) string {
	var sb strings.Builder

	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(&sb, "%sstruct `%s`\n", indent, s.Name)

	for _, member := range s.Members {
		width := member.Width
		if width == "" {
			width = member.TypeName
		}

		count := ""
		if member.Count > 1 {
			count = fmt.Sprintf("[%d]", member.Count)
		}

		fmt.Fprintf(&sb, "%s- `%s%s` %s\n", indent, member.Name, count, width)

		if member.TypeName == "" || depth >= 3 {
			continue
		}

		if nested, nestedOwner, ok := e.ResolveStructure(owner, member.TypeName); ok && nested != s {
			sb.WriteString(e.structureLayout(nested, nestedOwner, depth+1))
		}
	}

	return sb.String()
}
