package findings

import (
	"sort"

	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// GlobalDeclaration looks up a file-global declaration.
func (f *Findings) GlobalDeclaration(name string) (*Declaration, bool) {
	decl, ok := f.globals[key(name)]
	return decl, ok
}

// LocalDeclaration looks up a declaration local to method.
func (f *Findings) LocalDeclaration(method, name string) (*Declaration, bool) {
	if method == "" {
		return nil, false
	}

	table, ok := f.locals[key(method)]
	if !ok {
		return nil, false
	}

	decl, ok := table[key(name)]

	return decl, ok
}

// IsKnownName reports whether name is declared globally or local to method.
func (f *Findings) IsKnownName(method, name string) bool {
	if _, ok := f.LocalDeclaration(method, name); ok {
		return true
	}

	_, ok := f.GlobalDeclaration(name)

	return ok
}

// GlobalDeclarations returns the global declarations in declaration order.
func (f *Findings) GlobalDeclarations() []*Declaration {
	out := make([]*Declaration, 0, len(f.globalOrder))
	for _, k := range f.globalOrder {
		out = append(out, f.globals[k])
	}

	return out
}

// LocalDeclarations returns the declarations local to method sorted by position.
func (f *Findings) LocalDeclarations(method string) []*Declaration {
	table := f.locals[key(method)]

	out := make([]*Declaration, 0, len(table))
	for _, decl := range table {
		out = append(out, decl)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})

	return out
}

// PublicDeclarations returns the declarations visible through an object qualifier.
func (f *Findings) PublicDeclarations() []*Declaration {
	var out []*Declaration

	for _, decl := range f.GlobalDeclarations() {
		if decl.IsPublic() {
			out = append(out, decl)
		}
	}

	return out
}

// Methods returns PUB and PRI method names in declaration order.
func (f *Findings) Methods() []string {
	return append([]string(nil), f.methods...)
}

// References returns the references recorded for name, in scan order.
func (f *Findings) References(name string) []Reference {
	return f.references[key(name)]
}

// ReferencedNames returns the lower-cased names that have references.
func (f *Findings) ReferencedNames() []string {
	names := make([]string, 0, len(f.references))
	for k := range f.references {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

// HasReferences reports whether any reference to name was recorded.
func (f *Findings) HasReferences(name string) bool {
	return len(f.references[key(name)]) > 0
}

// ReferenceAt returns the reference whose range contains pos and its lower-cased name.
func (f *Findings) ReferenceAt(pos position.Position) (string, Reference, bool) {
	if f.lineIndex != nil {
		for _, lr := range f.lineIndex[pos.Line] {
			ref := f.references[lr.key][lr.index]
			if ref.Range.Contains(pos) {
				return lr.key, ref, true
			}
		}

		return "", Reference{}, false
	}

	for k, refs := range f.references {
		for _, ref := range refs {
			if ref.Range.Contains(pos) {
				return k, ref, true
			}
		}
	}

	return "", Reference{}, false
}

// Structure returns the named structure type.
func (f *Findings) Structure(name string) (*Structure, bool) {
	s, ok := f.structures[key(name)]
	return s, ok
}

// Structures returns all structures sorted by position.
func (f *Findings) Structures() []*Structure {
	out := make([]*Structure, 0, len(f.structures))
	for _, s := range f.structures {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})

	return out
}

// ObjectImport returns the OBJ import for an instance name.
func (f *Findings) ObjectImport(instance string) (ObjectImport, bool) {
	idx, ok := f.objectKeys[key(instance)]
	if !ok {
		return ObjectImport{}, false
	}

	return f.objects[idx], true
}

// ObjectImports returns OBJ imports in declaration order.
func (f *Findings) ObjectImports() []ObjectImport {
	return append([]ObjectImport(nil), f.objects...)
}

// IncludeImports returns #include imports in declaration order.
func (f *Findings) IncludeImports() []IncludeImport {
	return append([]IncludeImport(nil), f.includes...)
}

// Blocks returns the section spans.
func (f *Findings) Blocks() []BlockSpan {
	return append([]BlockSpan(nil), f.blocks...)
}

// BlockAt returns the section span containing line.
func (f *Findings) BlockAt(line int) (BlockSpan, bool) {
	for _, block := range f.blocks {
		end := block.EndLine
		if end < 0 {
			end = block.StartLine
		}

		if line >= block.StartLine && line <= end {
			return block, true
		}
	}

	return BlockSpan{}, false
}

// MethodAt returns the name of the PUB/PRI method enclosing line, or "".
func (f *Findings) MethodAt(line int) string {
	block, ok := f.BlockAt(line)
	if !ok || (block.Kind != BlockPub && block.Kind != BlockPri) {
		return ""
	}

	return block.Name
}

// FoldSpans returns the foldable regions.
func (f *Findings) FoldSpans() []FoldSpan {
	return append([]FoldSpan(nil), f.folds...)
}

// Problems returns scan-time problems.
func (f *Findings) Problems() []Problem {
	return append([]Problem(nil), f.problems...)
}

// DocumentLinks returns the OBJ and #include file-name spans.
func (f *Findings) DocumentLinks() []DocumentLink {
	return append([]DocumentLink(nil), f.links...)
}
