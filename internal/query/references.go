package query

import (
	"sort"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// References returns every location of the symbol named at pos, across all
// published files. A method-local symbol only has references in its method.
// A global symbol is referenced unqualified in its own file and in files that
// #include it, and as inst.name in files that instantiate it.
func (e *Engine) References(current *findings.Findings, name, qualifier string, pos position.Position, includeDecl bool) []Location {
	res, ok := e.Resolve(current, name, qualifier, pos)
	if !ok {
		return nil
	}

	var locs []Location

	add := func(path string, refs []findings.Reference, keep func(findings.Reference) bool) {
		for _, ref := range refs {
			if !includeDecl && ref.IsDeclaration {
				continue
			}

			if keep(ref) {
				locs = append(locs, Location{Path: path, Range: ref.Range})
			}
		}
	}

	if !res.Decl.IsGlobal() {
		scope := res.Decl.Scope
		add(res.Path, res.Owner.References(res.Decl.Name), func(ref findings.Reference) bool {
			return strings.EqualFold(ref.Scope, scope)
		})

		return locs
	}

	declName := res.Decl.Name

	e.Findings.Each(func(path string, f *findings.Findings) {
		if samePath(path, res.Path) {
			add(path, f.References(declName), unqualifiedGlobal)
			return
		}

		if decl, ok := f.GlobalDeclaration(declName); ok && decl.Origin != "" && samePath(decl.Origin, res.Path) {
			add(path, f.References(declName), unqualifiedGlobal)
		}

		if !res.Decl.IsPublic() {
			return
		}

		for _, instance := range e.importsPath(f, res.Path) {
			add(path, f.References(declName), func(ref findings.Reference) bool {
				return strings.EqualFold(ref.Qualifier, instance)
			})
		}
	})

	sortLocations(locs)

	return locs
}

func unqualifiedGlobal(ref findings.Reference) bool {
	return ref.Scope == "" && ref.Qualifier == ""
}

func sortLocations(locs []Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		if locs[i].Path != locs[j].Path {
			return locs[i].Path < locs[j].Path
		}

		return locs[i].Range.Start.Before(locs[j].Range.Start)
	})
}

// Highlight is an occurrence of the symbol under the cursor in the same file.
type Highlight struct {
	Range         position.Range
	IsDeclaration bool
}

// Highlights returns the occurrences in current of the reference at pos that
// share its scope and qualifier.
func (e *Engine) Highlights(current *findings.Findings, pos position.Position) []Highlight {
	if current == nil {
		return nil
	}

	name, at, ok := current.ReferenceAt(pos)
	if !ok {
		return nil
	}

	var out []Highlight

	for _, ref := range current.References(name) {
		if !strings.EqualFold(ref.Scope, at.Scope) || !strings.EqualFold(ref.Qualifier, at.Qualifier) {
			continue
		}

		out = append(out, Highlight{Range: ref.Range, IsDeclaration: ref.IsDeclaration})
	}

	return out
}
