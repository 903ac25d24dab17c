package rename

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

var (
	// ErrNoReferences is returned when nothing is recorded at the position.
	ErrNoReferences = errors.New("no references found")
	// ErrNotRenameable is returned for PASM local labels and empty names.
	ErrNotRenameable = errors.New("symbol cannot be renamed")
	// ErrInvalidName is returned when the new name is not an identifier.
	ErrInvalidName = errors.New("invalid new name")
)

// EditSet maps file paths to the ranges to replace with the new name.
type EditSet map[string][]position.Range

// Count returns the number of edits over all files.
func (s EditSet) Count() int {
	n := 0
	for _, ranges := range s {
		n += len(ranges)
	}

	return n
}

// Paths returns the edited files in sorted order.
func (s EditSet) Paths() []string {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths
}

// Source is the published findings of every known file.
type Source interface {
	Each(fn func(path string, f *findings.Findings))
}

// CanRename rejects names that are never renamed: PASM local labels (.name or
// :name) and the empty name.
func CanRename(name string) error {
	if name == "" {
		return ErrNotRenameable
	}

	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, ":") {
		return fmt.Errorf("%w: %s is a local label", ErrNotRenameable, name)
	}

	return nil
}

// Planner builds rename edit sets.
type Planner struct {
	Findings Source
	Policy   Policy
}

// Target is the reference a rename starts from.
type Target struct {
	Name  string
	Range position.Range
	Scope string
}

// Prepare returns the reference under pos when it can be renamed.
func (p *Planner) Prepare(current *findings.Findings, pos position.Position) (Target, error) {
	if current == nil {
		return Target{}, ErrNoReferences
	}

	key, ref, ok := current.ReferenceAt(pos)
	if !ok {
		return Target{}, ErrNoReferences
	}

	name := key
	if decl, found := current.LocalDeclaration(ref.Scope, key); found && ref.Scope != "" {
		name = decl.Name
	} else if decl, found := current.GlobalDeclaration(key); found {
		name = decl.Name
	}

	if err := CanRename(name); err != nil {
		return Target{}, err
	}

	return Target{Name: name, Range: ref.Range, Scope: ref.Scope}, nil
}

// Plan returns the edits that rename the symbol at pos to newName.
//
// A method-local target is renamed only within its method in current. A
// global target is renamed in every owned file with a non-local reference of
// the same name, current included.
func (p *Planner) Plan(current *findings.Findings, pos position.Position, newName string) (EditSet, error) {
	target, err := p.Prepare(current, pos)
	if err != nil {
		return nil, err
	}

	if !parser.IsIdentifier(newName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}

	edits := make(EditSet)

	if target.Scope != "" {
		for _, ref := range current.References(target.Name) {
			if strings.EqualFold(ref.Scope, target.Scope) {
				edits[current.Path] = append(edits[current.Path], ref.Range)
			}
		}

		return finish(edits)
	}

	collect := func(path string, f *findings.Findings) {
		for _, ref := range f.References(target.Name) {
			if ref.Scope == "" {
				edits[path] = append(edits[path], ref.Range)
			}
		}
	}

	// the file the rename starts in is filtered like any other
	if p.Policy.IsOwned(current.Path) {
		collect(current.Path, current)
	}

	p.Findings.Each(func(path string, f *findings.Findings) {
		if f == current || strings.EqualFold(path, current.Path) || !p.Policy.IsOwned(path) {
			return
		}

		collect(path, f)
	})

	return finish(edits)
}

func finish(edits EditSet) (EditSet, error) {
	if edits.Count() == 0 {
		return nil, ErrNoReferences
	}

	for path := range edits {
		ranges := edits[path]
		sort.Slice(ranges, func(i, j int) bool {
			return ranges[i].Start.Before(ranges[j].Start)
		})
	}

	return edits, nil
}
