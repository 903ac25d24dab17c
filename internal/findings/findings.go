package findings

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// Findings is the symbol table of one parsed file.
//
// A Findings value is filled by the parser and then frozen; after Freeze it is
// never mutated again, so readers may share it without locking. A reparse builds
// a new value and replaces the old one in the Store.
type Findings struct {
	Path    string
	Version uint64

	globals     map[string]*Declaration
	globalOrder []string
	locals      map[string]map[string]*Declaration
	methods     []string

	references map[string][]Reference
	declAt     map[position.Position]bool

	structures map[string]*Structure
	objects    []ObjectImport
	objectKeys map[string]int
	includes   []IncludeImport

	blocks   []BlockSpan
	folds    []FoldSpan
	problems []Problem
	links    []DocumentLink

	lineIndex map[int][]lineRef
	frozen    bool
}

type lineRef struct {
	key   string
	index int
}

// New creates an empty, unfrozen Findings for the given path.
func New(path string) *Findings {
	return &Findings{
		Path:       path,
		globals:    make(map[string]*Declaration),
		locals:     make(map[string]map[string]*Declaration),
		references: make(map[string][]Reference),
		declAt:     make(map[position.Position]bool),
		structures: make(map[string]*Structure),
		objectKeys: make(map[string]int),
	}
}

// FileName returns the basename of the file.
func (f *Findings) FileName() string {
	return filepath.Base(f.Path)
}

// Dir returns the folder containing the file.
func (f *Findings) Dir() string {
	return filepath.Dir(f.Path)
}

func key(name string) string {
	return strings.ToLower(name)
}

// RecordDeclaration inserts a declaration into the global or method-local table.
// A duplicate name within the same scope is rejected (false) and reported as a
// problem; the scan continues either way.
func (f *Findings) RecordDeclaration(decl Declaration) bool {
	if !f.mutable() || decl.Name == "" {
		return false
	}

	k := key(decl.Name)

	if decl.IsGlobal() {
		if existing, dup := f.globals[k]; dup {
			if decl.Origin == "" && existing.Origin == "" {
				f.RecordProblem(Problem{
					Range:    decl.Range,
					Message:  fmt.Sprintf("P2 Spin duplicate name [%s], already declared as %s", decl.Name, existing.Kind),
					Severity: SeverityError,
				})
			}

			return false
		}

		d := decl
		f.globals[k] = &d
		f.globalOrder = append(f.globalOrder, k)

		if d.Kind == KindMethod {
			f.methods = append(f.methods, d.Name)
		}
	} else {
		scopeKey := key(decl.Scope)

		table, ok := f.locals[scopeKey]
		if !ok {
			table = make(map[string]*Declaration)
			f.locals[scopeKey] = table
		}

		if _, dup := table[k]; dup {
			f.RecordProblem(Problem{
				Range:    decl.Range,
				Message:  fmt.Sprintf("P2 Spin duplicate local name [%s] in method %s", decl.Name, decl.Scope),
				Severity: SeverityError,
			})

			return false
		}

		d := decl
		table[k] = &d
	}

	if decl.Origin == "" {
		f.RecordReference(decl.Name, Reference{Range: decl.Range, Scope: decl.Scope, IsDeclaration: true})
	}

	return true
}

// RecordReference appends a reference for name. The declaration flag of the
// reference is kept as given.
func (f *Findings) RecordReference(name string, ref Reference) {
	if !f.mutable() || name == "" {
		return
	}

	if ref.IsDeclaration {
		f.declAt[ref.Range.Start] = true
	}

	k := key(name)
	f.references[k] = append(f.references[k], ref)
}

// IsDeclarationAt reports whether a declaration was recorded starting at pos.
func (f *Findings) IsDeclarationAt(pos position.Position) bool {
	return f.declAt[pos]
}

// RecordStructure records a structure type. Duplicate member names are dropped.
func (f *Findings) RecordStructure(s Structure) {
	if !f.mutable() {
		return
	}

	seen := make(map[string]bool, len(s.Members))
	members := make([]StructMember, 0, len(s.Members))

	for _, member := range s.Members {
		mk := key(member.Name)
		if seen[mk] {
			f.RecordProblem(Problem{
				Range:    member.Range,
				Message:  fmt.Sprintf("duplicate member [%s] in structure %s", member.Name, s.Name),
				Severity: SeverityError,
			})

			continue
		}

		seen[mk] = true
		members = append(members, member)
	}

	s.Members = members
	f.structures[key(s.Name)] = &s
}

// RecordObjectImport records an OBJ instance. The first import for an instance
// name wins; later duplicates are ignored.
func (f *Findings) RecordObjectImport(imp ObjectImport) bool {
	if !f.mutable() {
		return false
	}

	k := key(imp.InstanceName)
	if _, exists := f.objectKeys[k]; exists {
		return false
	}

	f.objectKeys[k] = len(f.objects)
	f.objects = append(f.objects, imp)
	f.links = append(f.links, DocumentLink{Range: imp.FileRange, FileName: imp.FileName})

	return true
}

// RecordInclude records an #include import.
func (f *Findings) RecordInclude(inc IncludeImport) {
	if !f.mutable() {
		return
	}

	f.includes = append(f.includes, inc)
	f.links = append(f.links, DocumentLink{Range: inc.FileRange, FileName: inc.FileName})
}

// RecordBlockStart closes the open block (if any) at the previous line and opens
// a new one.
func (f *Findings) RecordBlockStart(kind BlockKind, line int, name string) {
	if !f.mutable() {
		return
	}

	if n := len(f.blocks); n > 0 && f.blocks[n-1].EndLine < 0 {
		// an explicit header on the first line replaces the implicit CON block
		if f.blocks[n-1].StartLine == line {
			f.blocks[n-1] = BlockSpan{Kind: kind, StartLine: line, EndLine: -1, Name: name}
			return
		}

		f.blocks[n-1].EndLine = line - 1
	}

	f.blocks = append(f.blocks, BlockSpan{Kind: kind, StartLine: line, EndLine: -1, Name: name})
}

// FinishFinalBlock closes the last open block at lastLine.
func (f *Findings) FinishFinalBlock(lastLine int) {
	if !f.mutable() {
		return
	}

	if n := len(f.blocks); n > 0 && f.blocks[n-1].EndLine < 0 {
		f.blocks[n-1].EndLine = max(f.blocks[n-1].StartLine, lastLine)
	}
}

// RecordFoldSpan records a foldable region spanning more than one line.
func (f *Findings) RecordFoldSpan(span FoldSpan) {
	if !f.mutable() || span.End.Line <= span.Start.Line {
		return
	}

	f.folds = append(f.folds, span)
}

// RecordProblem records a scan-time problem.
func (f *Findings) RecordProblem(p Problem) {
	if !f.mutable() {
		return
	}

	f.problems = append(f.problems, p)
}

// Freeze builds the position index and marks the findings immutable.
func (f *Findings) Freeze() *Findings {
	if f.frozen {
		return f
	}

	f.lineIndex = make(map[int][]lineRef)

	for k, refs := range f.references {
		for i, ref := range refs {
			line := ref.Range.Start.Line
			f.lineIndex[line] = append(f.lineIndex[line], lineRef{key: k, index: i})
		}
	}

	sort.SliceStable(f.folds, func(i, j int) bool {
		return f.folds[i].Start.Before(f.folds[j].Start)
	})

	f.frozen = true

	return f
}

// IsFrozen reports whether Freeze has been called.
func (f *Findings) IsFrozen() bool {
	return f.frozen
}

// mutable reports whether the findings may still be written to. Writes after
// Freeze are dropped.
func (f *Findings) mutable() bool {
	return !f.frozen
}
