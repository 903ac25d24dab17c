// Package rename plans multi-file renames. The scope of the reference under
// the cursor decides the blast radius, and an ownership policy keeps library
// and other authors' files out of the edit set.
package rename

import (
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
)

// Policy decides which files a global rename may touch.
type Policy struct {
	// CentralLibraryPaths are shared library folders that are never edited.
	CentralLibraryPaths []string
	// AuthorPrefix, when set, limits edits to files named "<prefix>_..." or
	// files without an underscore.
	AuthorPrefix string
}

// IsOwned reports whether path may be edited by a global rename.
func (p Policy) IsOwned(path string) bool {
	clean := filepath.Clean(path)

	for _, lib := range p.CentralLibraryPaths {
		if lib == "" {
			continue
		}

		if isUnder(clean, filepath.Clean(resolver.ExpandHome(lib))) {
			return false
		}
	}

	if p.AuthorPrefix == "" {
		return true
	}

	base := filepath.Base(clean)

	idx := strings.IndexByte(base, '_')
	if idx <= 0 {
		return true
	}

	prefix := p.AuthorPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return strings.EqualFold(base[:idx+1], prefix)
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
