package server

import (
	"encoding/binary"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// Processor parses documents and publishes their findings.
//
// Processing a file first brings its #include files up to date, then parses
// the file with their declarations merged in, publishes the result and finally
// preloads the objects it instantiates that are neither open nor published.
type Processor struct {
	docs        *DocumentStore
	store       *findings.Store
	index       *workspace.SymbolIndex
	tree        *resolver.TreeBuilder
	includeDirs func(folder string) []string
	flexspin    func() bool

	loads singleflight.Group

	// publishMu orders the stale check and the store update of every publish.
	publishMu sync.Mutex
}

// NewProcessor creates a processor. includeDirs and flexspin may be nil.
func NewProcessor(docs *DocumentStore, store *findings.Store, index *workspace.SymbolIndex,
	includeDirs func(folder string) []string, flexspin func() bool,
) *Processor {
	p := &Processor{
		docs:        docs,
		store:       store,
		index:       index,
		includeDirs: includeDirs,
		flexspin:    flexspin,
	}

	p.tree = &resolver.TreeBuilder{
		Findings:    store,
		HasDocument: docs.HasPath,
		IncludeDirs: p.extraDirs,
	}

	return p
}

// Tree returns the dependency tree builder over the published findings.
func (p *Processor) Tree() *resolver.TreeBuilder {
	return p.tree
}

func (p *Processor) extraDirs(folder string) []string {
	if p.includeDirs == nil {
		return nil
	}

	return p.includeDirs(folder)
}

func (p *Processor) flexspinEnabled() bool {
	return p.flexspin != nil && p.flexspin()
}

// Process parses text as the content of path and publishes the findings.
// When neither the text nor any included file changed since the last run, the
// published findings are returned as they are.
//
// For an open document text must be its buffer. If the buffer changed or the
// document closed before the result is published, the result is dropped and
// the findings already published are returned.
func (p *Processor) Process(path, text string) *findings.Findings {
	return p.process(path, text, p.docs.HasPath(path), map[string]bool{findings.NormalizePath(path): true}, false)
}

// Reprocess parses path again from its open document or, failing that, from
// disk. It is used when a file changed behind our back.
func (p *Processor) Reprocess(path string) (*findings.Findings, error) {
	text, buffer, err := p.textFor(path)
	if err != nil {
		return nil, err
	}

	return p.process(path, text, buffer, map[string]bool{findings.NormalizePath(path): true}, true), nil
}

// textFor returns the current text of path and whether it is an open buffer.
func (p *Processor) textFor(path string) (string, bool, error) {
	if doc, ok := p.docs.GetByPath(path); ok {
		return doc.Text, true, nil
	}

	text, err := workspace.LoadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("loading %s: %w", path, err)
	}

	return text, false, nil
}

// process parses text and publishes the result. buffer tells whether text is
// a snapshot of an open document rather than the file on disk.
func (p *Processor) process(path, text string, buffer bool, visited map[string]bool, force bool) *findings.Findings {
	flexspin := p.flexspinEnabled()
	includes := p.includedFindings(path, text, flexspin, visited)
	version := contentVersion(text, flexspin, includes)

	if existing, ok := p.store.Get(path); ok && existing.Version == version && !force {
		return existing
	}

	f := parser.Parse(text, parser.Options{
		Path:     findings.NormalizePath(path),
		Version:  version,
		Flexspin: flexspin,
		Includes: includes,
	})

	if !p.publish(path, text, buffer, f) {
		log.Printf("Dropped stale findings for %s\n", path)

		if current, ok := p.store.Get(path); ok {
			return current
		}

		return f
	}

	p.preloadChildren(f, visited)

	return f
}

// publish stores f unless the text it was parsed from is stale. A buffer
// snapshot is stale once the document changed or closed, a disk snapshot once
// the file is open with other content.
func (p *Processor) publish(path, text string, buffer bool, f *findings.Findings) bool {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	doc, open := p.docs.GetByPath(path)

	switch {
	case open && doc.Hash != xxhash.Sum64String(text):
		return false
	case !open && buffer:
		return false
	}

	p.store.Set(path, f)

	if p.index != nil {
		p.index.UpdateFile(workspace.PathToURI(f.Path), f)
	}

	return true
}

// includedFindings brings the #include files of text up to date and returns
// them keyed by lower-cased include name.
func (p *Processor) includedFindings(path, text string, flexspin bool, visited map[string]bool) map[string]*findings.Findings {
	if !flexspin {
		return nil
	}

	pre := parser.Parse(text, parser.Options{Path: path, Flexspin: true})

	names := resolver.IncludeNamesForFilename(pre, filepath.Base(path))
	if len(names) == 0 {
		return nil
	}

	folder := filepath.Dir(path)
	resolved := resolver.ResolveReferencedIncludes(names, folder, p.extraDirs(folder))
	includes := make(map[string]*findings.Findings, len(names))

	for i, name := range names {
		target := resolved[i]
		if target == "" {
			continue
		}

		key := findings.NormalizePath(target)
		if visited[key] {
			if f, ok := p.store.Get(target); ok {
				includes[strings.ToLower(name)] = f
			}

			continue
		}

		visited[key] = true

		if f := p.ensure(target, visited); f != nil {
			includes[strings.ToLower(name)] = f
		}
	}

	return includes
}

// ensure returns up-to-date findings for an included file: an open document
// is processed from its text, an unopened one is loaded from disk once.
func (p *Processor) ensure(path string, visited map[string]bool) *findings.Findings {
	if doc, ok := p.docs.GetByPath(path); ok {
		return p.process(path, doc.Text, true, visited, false)
	}

	if f, ok := p.store.Get(path); ok {
		return f
	}

	return p.load(path, visited)
}

// load reads an unopened file from disk and processes it. Concurrent loads of
// the same file share one read.
func (p *Processor) load(path string, visited map[string]bool) *findings.Findings {
	v, err, _ := p.loads.Do(findings.NormalizePath(path), func() (any, error) {
		return workspace.LoadFile(path)
	})
	if err != nil {
		log.Printf("Warning: could not load %s: %v\n", path, err)
		return nil
	}

	return p.process(path, v.(string), false, visited, false)
}

// preloadChildren loads the OBJ children of f that are neither open nor
// published, recursively.
func (p *Processor) preloadChildren(f *findings.Findings, visited map[string]bool) {
	folder := f.Dir()
	extra := p.extraDirs(folder)

	for _, imp := range f.ObjectImports() {
		child, ok := resolver.ResolveFile(imp.FileName, folder, extra)
		if !ok {
			continue
		}

		key := findings.NormalizePath(child)
		if visited[key] {
			continue
		}

		visited[key] = true

		if _, published := p.store.Get(child); published || p.docs.HasPath(child) {
			continue
		}

		p.load(child, visited)
	}
}

// ParseUnopened publishes a file found on disk unless it is open in the
// editor, whose buffer wins. It has the workspace.ParseFunc shape.
func (p *Processor) ParseUnopened(path, text string) *findings.Findings {
	if p.docs.HasPath(path) {
		return nil
	}

	return p.Process(path, text)
}

// Forget handles a closed document. Its findings are dropped, unless another
// published file still depends on it; then the saved file is parsed again so
// the unsaved buffer content is not kept.
func (p *Processor) Forget(path string) {
	if len(p.Dependents(path)) == 0 {
		p.Remove(path)
		return
	}

	if _, err := p.Reprocess(path); err != nil {
		log.Printf("Warning: %v\n", err)
		p.Remove(path)
	}
}

// Remove drops the published findings of a file deleted from disk.
func (p *Processor) Remove(path string) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	p.store.Delete(path)

	if p.index != nil {
		p.index.RemoveFile(workspace.PathToURI(findings.NormalizePath(path)))
	}
}

// Dependents returns the published files that instantiate or #include path
// directly, in path order.
func (p *Processor) Dependents(path string) []string {
	target := findings.NormalizePath(path)

	var out []string

	p.store.Each(func(candidate string, f *findings.Findings) {
		if candidate == target {
			return
		}

		folder := f.Dir()
		extra := p.extraDirs(folder)

		for _, imp := range f.ObjectImports() {
			if child, ok := resolver.ResolveFile(imp.FileName, folder, extra); ok && findings.NormalizePath(child) == target {
				out = append(out, candidate)
				return
			}
		}

		for _, inc := range f.IncludeImports() {
			if child, ok := resolver.ResolveFile(inc.FileName, folder, extra); ok && findings.NormalizePath(child) == target {
				out = append(out, candidate)
				return
			}
		}
	})

	return out
}

// Enclosing returns the open documents that depend on path, directly or
// through other files, in path order.
func (p *Processor) Enclosing(path string) []string {
	start := findings.NormalizePath(path)
	seen := map[string]bool{start: true}
	queue := []string{start}

	var open []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, parent := range p.Dependents(current) {
			if seen[parent] {
				continue
			}

			seen[parent] = true
			queue = append(queue, parent)

			if p.docs.HasPath(parent) {
				open = append(open, parent)
			}
		}
	}

	sort.Strings(open)

	return open
}

// ProcessEnclosing re-runs the open documents that depend on path so merged
// include declarations and missing-file problems are current. It returns the
// paths that were processed.
func (p *Processor) ProcessEnclosing(path string) []string {
	enclosing := p.Enclosing(path)

	for _, parent := range enclosing {
		if doc, ok := p.docs.GetByPath(parent); ok {
			p.Process(parent, doc.Text)
		}
	}

	return enclosing
}

// ReprocessAll reparses every open document, for example after a setting
// that affects parsing changed.
func (p *Processor) ReprocessAll() []string {
	var paths []string

	for _, uri := range p.docs.List() {
		doc, ok := p.docs.Get(uri)
		if !ok {
			continue
		}

		p.process(doc.Path, doc.Text, true, map[string]bool{findings.NormalizePath(doc.Path): true}, true)
		paths = append(paths, doc.Path)
	}

	return paths
}

// Problems returns the problems of path: the ones found while scanning plus
// missing OBJ and #include files and circular object references.
func (p *Processor) Problems(path string) []findings.Problem {
	f, ok := p.store.Get(path)
	if !ok {
		return nil
	}

	problems := append([]findings.Problem(nil), f.Problems()...)

	root := p.tree.Build(f.Path, "", 0, nil)

	objects := f.ObjectImports()
	includeRanges := make(map[string]findings.IncludeImport)

	for _, inc := range f.IncludeImports() {
		if _, ok := includeRanges[strings.ToLower(inc.FileName)]; !ok {
			includeRanges[strings.ToLower(inc.FileName)] = inc
		}
	}

	for i, child := range root.Children {
		if child.DependencyType == resolver.DependencyObj && i < len(objects) {
			imp := objects[i]

			switch {
			case child.State == resolver.StateMissing:
				problems = append(problems, findings.Problem{
					Range:    imp.FileRange,
					Message:  fmt.Sprintf("Missing object file [%s]", resolver.WithDefaultExtension(imp.FileName)),
					Severity: findings.SeverityError,
				})
			case hasCircular(child):
				problems = append(problems, findings.Problem{
					Range:    imp.FileRange,
					Message:  fmt.Sprintf("Circular object reference through [%s]", child.FileName),
					Severity: findings.SeverityError,
				})
			}

			continue
		}

		if child.DependencyType == resolver.DependencyInclude && child.State == resolver.StateMissing {
			inc, ok := includeRanges[strings.ToLower(child.InstanceName)]
			if !ok {
				continue
			}

			problems = append(problems, findings.Problem{
				Range:    inc.FileRange,
				Message:  fmt.Sprintf("Missing include file [%s]", inc.FileName),
				Severity: findings.SeverityError,
			})
		}
	}

	return problems
}

func hasCircular(n *resolver.Node) bool {
	found := false

	n.Walk(func(node *resolver.Node) {
		if node.State == resolver.StateCircular {
			found = true
		}
	})

	return found
}

// contentVersion hashes the text together with the parse mode and the
// versions of the merged include files.
func contentVersion(text string, flexspin bool, includes map[string]*findings.Findings) uint64 {
	digest := xxhash.New()
	_, _ = digest.WriteString(text)

	if flexspin {
		_, _ = digest.Write([]byte{1})
	}

	names := make([]string, 0, len(includes))
	for name := range includes {
		names = append(names, name)
	}

	sort.Strings(names)

	var buf [8]byte

	for _, name := range names {
		_, _ = digest.WriteString(name)
		binary.LittleEndian.PutUint64(buf[:], includes[name].Version)
		_, _ = digest.Write(buf[:])
	}

	return digest.Sum64()
}
