package workspace

import (
	"log"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// ParseFunc parses and publishes one unopened file, returning its findings or
// nil when the file should not be indexed.
type ParseFunc func(path, text string) *findings.Findings

// Indexer loads every Spin file of the workspace folders, hands it to a
// ParseFunc and records its global declarations in a SymbolIndex.
type Indexer struct {
	index     *SymbolIndex
	walker    *Walker
	parse     ParseFunc
	fileCount int
}

// NewIndexer creates a new workspace indexer.
func NewIndexer(index *SymbolIndex, walker *Walker, parse ParseFunc) *Indexer {
	if walker == nil {
		walker = NewWalker(nil)
	}

	return &Indexer{
		index:  index,
		walker: walker,
		parse:  parse,
	}
}

// BuildWorkspaceIndex scans the workspace folders (paths or file URIs) and
// indexes every Spin file below them.
func (idx *Indexer) BuildWorkspaceIndex(folders []string) {
	if len(folders) == 0 {
		log.Println("No workspace folders to index")
		return
	}

	log.Printf("Starting workspace indexing for %d folders\n", len(folders))

	for _, folder := range folders {
		path := URIToPath(folder)
		if path == "" {
			log.Printf("Warning: Could not convert URI to path: %s\n", folder)
			continue
		}

		log.Printf("Indexing workspace folder: %s\n", path)
		idx.walker.Walk(path, idx.IndexFile)
	}

	log.Printf("Workspace indexing complete. Indexed %d files, %d symbols\n",
		idx.fileCount, idx.index.GetTotalLocationCount())
}

// IndexFile loads one file from disk, parses it and indexes its symbols.
func (idx *Indexer) IndexFile(path string) {
	text, err := LoadFile(path)
	if err != nil {
		log.Printf("Warning: Could not read file %s: %v\n", path, err)
		return
	}

	if idx.parse == nil {
		return
	}

	f := idx.parse(path, text)
	if f == nil {
		return
	}

	idx.index.UpdateFile(PathToURI(path), f)
	idx.fileCount++
}

// IndexWorkspaceAsync runs workspace indexing in a background goroutine and
// calls done, if set, when it finishes.
func (idx *Indexer) IndexWorkspaceAsync(folders []string, done func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in workspace indexing: %v\n", r)
			}

			if done != nil {
				done()
			}
		}()

		idx.BuildWorkspaceIndex(folders)
	}()
}

// FallbackSearch searches the findings store directly. It serves
// workspace/symbol while the index is still being built.
func FallbackSearch(store *findings.Store, query string, maxResults int) []SymbolLocation {
	log.Printf("Warning: Symbol index not ready, using fallback search for query %q\n", query)

	if maxResults <= 0 {
		maxResults = 100
	}

	queryLower := strings.ToLower(query)

	var results []SymbolLocation

	store.Each(func(path string, f *findings.Findings) {
		if len(results) >= maxResults {
			return
		}

		uri := PathToURI(path)

		for _, decl := range f.GlobalDeclarations() {
			if decl.Origin != "" || !strings.Contains(strings.ToLower(decl.Name), queryLower) {
				continue
			}

			results = append(results, SymbolLocation{
				Name:          decl.Name,
				Kind:          SymbolKindFor(decl.Kind),
				Location:      protocol.Location{URI: uri, Range: ToProtocolRange(decl.Range)},
				ContainerName: f.FileName(),
				Detail:        decl.Signature,
			})

			if len(results) >= maxResults {
				return
			}
		}
	})

	return results
}
