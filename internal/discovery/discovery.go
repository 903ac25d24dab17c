// Package discovery computes the per-folder include directories of a
// workspace from the OBJ references of its files.
package discovery

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CWBudde/go-spin2-lsp/internal/parser"
	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// ChangedNotification is sent after a run changed the stored policy.
const ChangedNotification = "spin/discoveredIncludesChanged"

// ErrNoFolders is returned by Run when there is no workspace folder to scan.
var ErrNoFolders = errors.New("no workspace folders")

// Notifier delivers a notification to the client. Delivery is best effort.
type Notifier func(method string, params any)

// ChangedParams is the payload of ChangedNotification.
type ChangedParams struct {
	LocalIncludes Policy `json:"localIncludes"`
}

// Options configures a Discoverer.
type Options struct {
	// Exclude holds directories (relative to the workspace root, or absolute)
	// and doublestar globs that are not scanned.
	Exclude []string
	// CentralLibraryPaths are appended to every folder's include directories.
	CentralLibraryPaths []string
	// Workers bounds the directories scanned in parallel. Zero means 8.
	Workers int
	// PolicyFile, when set, receives every published policy.
	PolicyFile string
}

// Discoverer runs include-directory discovery and holds the current policy.
//
// Runs may overlap. Each run computes its result without the lock and then
// publishes under it, so the run that finishes last wins, and it only
// publishes when its result differs from the stored one.
type Discoverer struct {
	opts   Options
	notify Notifier

	mu     sync.Mutex
	root   string
	policy Policy
	hash   uint64
}

// New creates a Discoverer seeded with a previously stored policy.
func New(opts Options, initial Policy, notify Notifier) *Discoverer {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	if initial == nil {
		initial = Policy{}
	}

	return &Discoverer{
		opts:   opts,
		notify: notify,
		policy: initial.Clone(),
		hash:   initial.Hash(),
	}
}

// Policy returns a copy of the current policy.
func (d *Discoverer) Policy() Policy {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.policy.Clone()
}

// SetPolicy replaces the current policy, for example after the user edited
// the include directories. No notification is sent.
func (d *Discoverer) SetPolicy(p Policy) {
	if p == nil {
		p = Policy{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.policy = p.Clone()
	d.hash = p.Hash()
}

// SetOptions replaces the options used by later runs.
func (d *Discoverer) SetOptions(opts Options) {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.opts = opts
}

func (d *Discoverer) options() Options {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.opts
}

// Root returns the workspace root of the last run.
func (d *Discoverer) Root() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.root
}

// SetRoot sets the workspace root used to key folders.
func (d *Discoverer) SetRoot(root string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.root = root
}

type folderScan struct {
	dir   string
	files []string
	refs  map[string]bool
}

// Run scans the workspace folders and publishes the new policy when it
// changed. The first folder is the workspace root that folder keys are
// relative to. It reports whether the stored policy changed.
func (d *Discoverer) Run(ctx context.Context, folders []string) (bool, error) {
	if len(folders) == 0 {
		return false, ErrNoFolders
	}

	opts := d.options()
	root := filepath.Clean(workspace.URIToPath(folders[0]))

	walker := workspace.NewWalker(absoluteExcludes(root, opts.Exclude))

	scans := catalog(walker, root, folders)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, scan := range scans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			scan.refs = scanDirectory(scan)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	discovered := computePolicy(root, scans)

	return d.publish(root, discovered, opts.PolicyFile), nil
}

// catalog groups the Spin files of every folder by directory.
func catalog(walker *workspace.Walker, root string, folders []string) []*folderScan {
	byDir := make(map[string]*folderScan)
	seen := make(map[string]bool)

	for _, folder := range folders {
		dir := filepath.Clean(workspace.URIToPath(folder))

		walker.Walk(dir, func(path string) {
			if seen[path] {
				return
			}

			seen[path] = true
			parent := filepath.Dir(path)

			scan, ok := byDir[parent]
			if !ok {
				scan = &folderScan{dir: parent}
				byDir[parent] = scan
			}

			scan.files = append(scan.files, filepath.Base(path))
		})
	}

	scans := make([]*folderScan, 0, len(byDir))
	for _, scan := range byDir {
		scans = append(scans, scan)
	}

	sort.Slice(scans, func(i, j int) bool {
		return scans[i].dir < scans[j].dir
	})

	return scans
}

// scanDirectory collects the lower-cased OBJ references of the .spin2 files
// in one directory. Unreadable files are logged and skipped.
func scanDirectory(scan *folderScan) map[string]bool {
	refs := make(map[string]bool)

	for _, name := range scan.files {
		if !strings.EqualFold(filepath.Ext(name), resolver.DefaultExtension) {
			continue
		}

		path := filepath.Join(scan.dir, name)

		text, err := workspace.LoadFile(path)
		if err != nil {
			log.Printf("Warning: include discovery could not read %s: %v\n", path, err)
			continue
		}

		for _, ref := range ExtractObjReferences(text) {
			refs[strings.ToLower(ref)] = true
		}
	}

	return refs
}

// ExtractObjReferences returns the file names referenced by the OBJ sections
// of text. A name without an extension gets .spin2 appended.
func ExtractObjReferences(text string) []string {
	f := parser.Parse(text, parser.Options{})

	imports := f.ObjectImports()
	refs := make([]string, 0, len(imports))

	for _, imp := range imports {
		if imp.FileName == "" {
			continue
		}

		refs = append(refs, resolver.WithDefaultExtension(imp.FileName))
	}

	return refs
}

// computePolicy derives the auto entries for every scanned directory.
func computePolicy(root string, scans []*folderScan) Policy {
	dirsByName := make(map[string][]string)

	for _, scan := range scans {
		for _, name := range scan.files {
			lower := strings.ToLower(name)
			dirsByName[lower] = append(dirsByName[lower], scan.dir)
		}
	}

	policy := make(Policy, len(scans))

	for _, scan := range scans {
		local := make(map[string]bool, len(scan.files))
		for _, name := range scan.files {
			local[strings.ToLower(name)] = true
		}

		needed := make(map[string]bool)

		for ref := range scan.refs {
			if local[ref] {
				continue
			}

			for _, candidate := range dirsByName[ref] {
				if candidate != scan.dir {
					needed[candidate] = true
				}
			}
		}

		dirs := make([]string, 0, len(needed))

		for candidate := range needed {
			rel, err := filepath.Rel(scan.dir, candidate)
			if err != nil {
				continue
			}

			rel = filepath.ToSlash(rel)
			if !strings.HasSuffix(rel, "/") {
				rel += "/"
			}

			dirs = append(dirs, rel)
		}

		sort.Strings(dirs)

		policy[relativeFolder(root, scan.dir)] = FolderIncludes{Auto: true, Dirs: dirs}
	}

	return policy
}

// publish merges the user-customized entries of the stored policy into
// discovered and stores the result when it differs.
func (d *Discoverer) publish(root string, discovered Policy, policyFile string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.root = root

	for folder, entry := range d.policy {
		if !entry.Auto {
			discovered[folder] = entry
		}
	}

	hash := discovered.Hash()
	if hash == d.hash {
		log.Printf("Include discovery done, %d folder entries (unchanged)\n", len(discovered))
		return false
	}

	d.policy = discovered
	d.hash = hash

	log.Printf("Include discovery done, %d folder entries (changed)\n", len(discovered))

	if policyFile != "" {
		if err := SavePolicy(policyFile, discovered); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	}

	if d.notify != nil {
		d.notify(ChangedNotification, ChangedParams{LocalIncludes: discovered.Clone()})
	}

	return true
}

// IncludeDirsForFolder returns the include directories of folder: its
// existing local directories in policy order, then the existing central
// library directories.
func (d *Discoverer) IncludeDirsForFolder(folder string) []string {
	d.mu.Lock()
	root := d.root
	entry, ok := d.policy[relativeFolder(root, folder)]
	libs := d.opts.CentralLibraryPaths
	d.mu.Unlock()

	var dirs []string

	if ok && root != "" {
		for _, dir := range entry.Dirs {
			resolved := dir
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(folder, filepath.FromSlash(dir))
			}

			if isDir(resolved) {
				dirs = append(dirs, filepath.Clean(resolved))
			}
		}
	}

	for _, lib := range libs {
		expanded := resolver.ExpandHome(lib)
		if expanded != "" && isDir(expanded) {
			dirs = append(dirs, filepath.Clean(expanded))
		}
	}

	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// relativeFolder returns the slash-separated key of dir below root.
func relativeFolder(root, dir string) string {
	if root == "" {
		return filepath.ToSlash(dir)
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return filepath.ToSlash(dir)
	}

	rel = filepath.ToSlash(rel)
	if rel == "" {
		rel = "."
	}

	return rel
}

// absoluteExcludes resolves plain relative exclusion paths against root once
// per run. Globs are kept as they are.
func absoluteExcludes(root string, exclude []string) []string {
	out := make([]string, 0, len(exclude))

	for _, entry := range exclude {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		entry = resolver.ExpandHome(entry)

		if strings.ContainsAny(entry, "*?[{") || filepath.IsAbs(entry) {
			out = append(out, entry)
			continue
		}

		out = append(out, filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(entry, "/"))))
	}

	return out
}
