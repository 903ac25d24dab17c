package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
)

// Walker lists the Spin files below a folder.
type Walker struct {
	// Exclude holds directory paths (absolute, or relative to the walked root)
	// and doublestar globs matched against the root-relative slash path.
	Exclude  []string
	MaxDepth int
	MaxFiles int
}

// NewWalker creates a walker with the default depth and file limits.
func NewWalker(exclude []string) *Walker {
	return &Walker{
		Exclude:  exclude,
		MaxDepth: 10,
		MaxFiles: 10000,
	}
}

// Walk calls visit for every Spin file below root, in sorted order, and returns
// the number of files visited.
func (w *Walker) Walk(root string, visit func(path string)) int {
	count := 0
	w.walkDir(root, root, 0, &count, visit)

	return count
}

// Files returns every Spin file below root.
func (w *Walker) Files(root string) []string {
	var files []string

	w.Walk(root, func(path string) {
		files = append(files, path)
	})

	return files
}

func (w *Walker) walkDir(root, dir string, depth int, count *int, visit func(string)) {
	if depth > w.MaxDepth || *count >= w.MaxFiles {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		name := entry.Name()
		fullPath := filepath.Join(dir, name)

		if strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			if skippedDir(name) || w.Excluded(root, fullPath) {
				continue
			}

			w.walkDir(root, fullPath, depth+1, count, visit)

			continue
		}

		if !resolver.IsSpinFile(name) || w.Excluded(root, fullPath) {
			continue
		}

		if *count >= w.MaxFiles {
			return
		}

		*count++
		visit(fullPath)
	}
}

// skippedDir reports whether a directory name is never walked: hidden
// directories and node_modules. Anything else is skipped only through Exclude.
func skippedDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}

	return name == "node_modules"
}

// Excluded reports whether path matches one of the exclusion entries.
func (w *Walker) Excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	rel = filepath.ToSlash(rel)

	for _, pattern := range w.Exclude {
		if pattern == "" {
			continue
		}

		if filepath.IsAbs(pattern) {
			if isUnder(path, pattern) {
				return true
			}

			continue
		}

		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")

		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return true
		}

		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}

		if matched, err := doublestar.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
