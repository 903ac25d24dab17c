// Package query answers symbol questions that may cross file boundaries: a
// lookup in one file continues into the findings of the objects it
// instantiates.
package query

import (
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
)

// Source is the published findings of every known file.
type Source interface {
	Get(path string) (*findings.Findings, bool)
	Each(fn func(path string, f *findings.Findings))
}

// Engine resolves names against published findings.
type Engine struct {
	Findings Source
	// IncludeDirs returns the extra search dirs for a folder. May be nil.
	IncludeDirs func(folder string) []string
}

// New creates an engine over src.
func New(src Source, includeDirs func(folder string) []string) *Engine {
	return &Engine{Findings: src, IncludeDirs: includeDirs}
}

// Result is a resolved declaration and the file that declares it.
type Result struct {
	Decl *findings.Declaration
	// Owner holds the findings of the declaring file. For a declaration merged
	// from an #include it is the included file when that file is published,
	// otherwise the including file.
	Owner *findings.Findings
	// Path is the declaring file.
	Path string
}

// Location is a range in a file.
type Location struct {
	Path  string
	Range position.Range
}

func (e *Engine) extraDirs(folder string) []string {
	if e.IncludeDirs == nil {
		return nil
	}

	return e.IncludeDirs(folder)
}

// ChildPath resolves the file instantiated by an OBJ instance of current.
func (e *Engine) ChildPath(current *findings.Findings, instance string) (string, bool) {
	if current == nil {
		return "", false
	}

	imp, ok := current.ObjectImport(instance)
	if !ok {
		return "", false
	}

	return resolver.ResolveFile(imp.FileName, current.Dir(), e.extraDirs(current.Dir()))
}

// ChildFindings returns the findings of the object behind an instance name.
func (e *Engine) ChildFindings(current *findings.Findings, instance string) (*findings.Findings, bool) {
	path, ok := e.ChildPath(current, instance)
	if !ok {
		return nil, false
	}

	return e.Findings.Get(path)
}

// Resolve looks name up as seen from pos in current.
//
// With a qualifier the lookup continues in the child object and only sees its
// public declarations. Without one the enclosing method's locals come first,
// then the file's globals.
func (e *Engine) Resolve(current *findings.Findings, name, qualifier string, pos position.Position) (Result, bool) {
	if current == nil || name == "" {
		return Result{}, false
	}

	if qualifier != "" {
		child, ok := e.ChildFindings(current, qualifier)
		if !ok {
			return Result{}, false
		}

		decl, ok := child.GlobalDeclaration(name)
		if !ok || !decl.IsPublic() {
			return Result{}, false
		}

		return e.result(child, decl), true
	}

	if method := current.MethodAt(pos.Line); method != "" {
		if decl, ok := current.LocalDeclaration(method, name); ok {
			return Result{Decl: decl, Owner: current, Path: current.Path}, true
		}
	}

	decl, ok := current.GlobalDeclaration(name)
	if !ok {
		return Result{}, false
	}

	return e.result(current, decl), true
}

// ResolveAt resolves the reference recorded at pos.
func (e *Engine) ResolveAt(current *findings.Findings, pos position.Position) (Result, bool) {
	if current == nil {
		return Result{}, false
	}

	name, ref, ok := current.ReferenceAt(pos)
	if !ok {
		return Result{}, false
	}

	return e.Resolve(current, name, ref.Qualifier, pos)
}

func (e *Engine) result(owner *findings.Findings, decl *findings.Declaration) Result {
	if decl.Origin == "" {
		return Result{Decl: decl, Owner: owner, Path: owner.Path}
	}

	if included, ok := e.Findings.Get(decl.Origin); ok {
		if own, found := included.GlobalDeclaration(decl.Name); found {
			return Result{Decl: own, Owner: included, Path: included.Path}
		}
	}

	return Result{Decl: decl, Owner: owner, Path: decl.Origin}
}

// ResolveStructure finds a structure type by name. "obj.type" names a public
// structure of a child object; it is resolved here, on demand, because the
// child may not have been parsed when current was.
func (e *Engine) ResolveStructure(current *findings.Findings, typeName string) (*findings.Structure, *findings.Findings, bool) {
	if current == nil || typeName == "" {
		return nil, nil, false
	}

	if head, tail, qualified := strings.Cut(typeName, "."); qualified {
		child, ok := e.ChildFindings(current, head)
		if !ok {
			return nil, nil, false
		}

		decl, ok := child.GlobalDeclaration(tail)
		if !ok || !decl.IsPublic() {
			return nil, nil, false
		}

		s, ok := child.Structure(tail)

		return s, child, ok
	}

	s, ok := current.Structure(typeName)

	return s, current, ok
}

// StructureOf returns the structure type of a variable, parameter or member
// declared in owner.
func (e *Engine) StructureOf(owner *findings.Findings, decl *findings.Declaration) (*findings.Structure, *findings.Findings, bool) {
	if decl == nil {
		return nil, nil, false
	}

	if decl.Kind == findings.KindStructure {
		s, ok := owner.Structure(decl.Name)
		return s, owner, ok
	}

	switch strings.ToUpper(decl.TypeName) {
	case "", "BYTE", "WORD", "LONG":
		return nil, nil, false
	}

	return e.ResolveStructure(owner, decl.TypeName)
}

// importsPath reports the instance names under which f instantiates target.
func (e *Engine) importsPath(f *findings.Findings, target string) []string {
	var instances []string

	for _, imp := range f.ObjectImports() {
		path, ok := resolver.ResolveFile(imp.FileName, f.Dir(), e.extraDirs(f.Dir()))
		if ok && samePath(path, target) {
			instances = append(instances, imp.InstanceName)
		}
	}

	return instances
}

func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}
