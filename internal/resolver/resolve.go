// Package resolver turns OBJ and #include file names into paths and builds the
// dependency tree of a file.
package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// DefaultExtension is appended to an OBJ file name that has none.
const DefaultExtension = ".spin2"

var spinExtensions = map[string]bool{
	".spin":  true,
	".spin2": true,
	".p2asm": true,
}

// IsSpinFile reports whether name has a Spin source extension.
func IsSpinFile(name string) bool {
	return spinExtensions[strings.ToLower(filepath.Ext(name))]
}

// WithDefaultExtension appends .spin2 to a file name without an extension.
func WithDefaultExtension(name string) string {
	if strings.Contains(filepath.Base(name), ".") {
		return name
	}

	return name + DefaultExtension
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// matchPrefix returns the lower-case basename prefix a candidate must start
// with. A name that does not mention .spin matches "name." plus any extension.
func matchPrefix(name string) string {
	lower := strings.ToLower(name)
	if !strings.Contains(lower, ".spin") {
		lower += "."
	}

	return lower
}

// spinFilesInDir lists the Spin files of dir sorted by name. A missing or
// unreadable directory has no files.
func spinFilesInDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	files := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !IsSpinFile(entry.Name()) {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)

	return files
}

// ResolveReferencedIncludes resolves each name to the first matching file in
// rootDir, then in extraDirs in order. Matching compares basenames
// case-insensitively by prefix. The result has one entry per name; an entry is
// "" when nothing matched. Relative extra dirs are taken relative to rootDir.
func ResolveReferencedIncludes(names []string, rootDir string, extraDirs []string) []string {
	dirs := make([]string, 0, 1+len(extraDirs))
	dirs = append(dirs, rootDir)

	for _, dir := range extraDirs {
		if dir == "" {
			continue
		}

		if !filepath.IsAbs(dir) {
			dir = filepath.Join(rootDir, dir)
		}

		dirs = append(dirs, filepath.Clean(dir))
	}

	listings := make([][]string, len(dirs))
	for i, dir := range dirs {
		listings[i] = spinFilesInDir(dir)
	}

	resolved := make([]string, len(names))

	for i, name := range names {
		prefix := matchPrefix(filepath.Base(name))

	search:
		for _, files := range listings {
			for _, file := range files {
				if strings.HasPrefix(strings.ToLower(filepath.Base(file)), prefix) {
					resolved[i] = file
					break search
				}
			}
		}
	}

	return resolved
}

// ResolveFile resolves a single name.
func ResolveFile(name, rootDir string, extraDirs []string) (string, bool) {
	resolved := ResolveReferencedIncludes([]string{name}, rootDir, extraDirs)
	return resolved[0], resolved[0] != ""
}

// IncludeNamesForFilename returns the #include names recorded by the including
// file fileName.
func IncludeNamesForFilename(f *findings.Findings, fileName string) []string {
	if f == nil {
		return nil
	}

	var names []string

	for _, inc := range f.IncludeImports() {
		if strings.EqualFold(inc.IncludingFile, fileName) {
			names = append(names, inc.FileName)
		}
	}

	return names
}
