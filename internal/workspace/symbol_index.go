// Package workspace walks workspace folders, loads unopened files, watches
// them for changes and keeps the workspace-wide symbol index.
package workspace

import (
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a name that does
// not contain the query to still be listed.
const fuzzyThreshold = 0.8

// SymbolLocation represents a location where a symbol is defined.
type SymbolLocation struct {
	Name          string
	Kind          protocol.SymbolKind
	Location      protocol.Location
	ContainerName string // file name of the declaring file
	Detail        string
}

// FileInfo stores metadata about an indexed file.
type FileInfo struct {
	URI     string
	Version uint64 // content hash of the indexed findings
	Symbols []string
}

// SymbolIndex maintains a workspace-wide index of file-global symbols.
type SymbolIndex struct {
	// symbols maps lower-cased names to their locations
	symbols map[string][]SymbolLocation
	files   map[string]*FileInfo

	mutex sync.RWMutex
}

// NewSymbolIndex creates a new empty symbol index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		symbols: make(map[string][]SymbolLocation),
		files:   make(map[string]*FileInfo),
	}
}

// SymbolKindFor maps a declaration kind to the protocol symbol kind.
func SymbolKindFor(kind findings.Kind) protocol.SymbolKind {
	switch kind {
	case findings.KindConstant, findings.KindDefine:
		return protocol.SymbolKindConstant
	case findings.KindEnumMember:
		return protocol.SymbolKindEnumMember
	case findings.KindVariable, findings.KindDatVariable, findings.KindLocalVariable,
		findings.KindParameter, findings.KindReturnValue:
		return protocol.SymbolKindVariable
	case findings.KindLabel:
		return protocol.SymbolKindKey
	case findings.KindMethod:
		return protocol.SymbolKindMethod
	case findings.KindObjectInstance:
		return protocol.SymbolKindModule
	case findings.KindStructure:
		return protocol.SymbolKindStruct
	}

	return protocol.SymbolKindVariable
}

// ToProtocolRange converts a scanner range to the protocol type.
func ToProtocolRange(r position.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(r.Start.Line), Character: protocol.UInteger(r.Start.Character)},
		End:   protocol.Position{Line: protocol.UInteger(r.End.Line), Character: protocol.UInteger(r.End.Character)},
	}
}

// AddSymbol adds a symbol to the index.
func (si *SymbolIndex) AddSymbol(name string, kind protocol.SymbolKind, uri string, symbolRange protocol.Range, containerName string, detail string) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.addLocked(SymbolLocation{
		Name:          name,
		Kind:          kind,
		Location:      protocol.Location{URI: uri, Range: symbolRange},
		ContainerName: containerName,
		Detail:        detail,
	})
}

func (si *SymbolIndex) addLocked(loc SymbolLocation) {
	k := strings.ToLower(loc.Name)
	si.symbols[k] = append(si.symbols[k], loc)

	uri := loc.Location.URI

	fileInfo, exists := si.files[uri]
	if !exists {
		fileInfo = &FileInfo{URI: uri}
		si.files[uri] = fileInfo
	}

	fileInfo.Symbols = append(fileInfo.Symbols, k)
}

// UpdateFile replaces the symbols of uri with the global declarations of f.
// Declarations merged from included files are indexed under their own file.
// Nothing changes when f carries the version already indexed.
func (si *SymbolIndex) UpdateFile(uri string, f *findings.Findings) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	if info, ok := si.files[uri]; ok && f.Version != 0 && info.Version == f.Version {
		return
	}

	si.removeLocked(uri)

	for _, decl := range f.GlobalDeclarations() {
		if decl.Origin != "" || decl.LocalLabel {
			continue
		}

		si.addLocked(SymbolLocation{
			Name:          decl.Name,
			Kind:          SymbolKindFor(decl.Kind),
			Location:      protocol.Location{URI: uri, Range: ToProtocolRange(decl.Range)},
			ContainerName: f.FileName(),
			Detail:        decl.Signature,
		})
	}

	info, ok := si.files[uri]
	if !ok {
		info = &FileInfo{URI: uri}
		si.files[uri] = info
	}

	info.Version = f.Version
}

// FindSymbol returns every location where name is declared.
func (si *SymbolIndex) FindSymbol(name string) []SymbolLocation {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	locations, exists := si.symbols[strings.ToLower(name)]
	if !exists {
		return nil
	}

	result := make([]SymbolLocation, len(locations))
	copy(result, locations)

	return result
}

// FindSymbolsInFile returns all symbols indexed for uri.
func (si *SymbolIndex) FindSymbolsInFile(uri string) []SymbolLocation {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	fileInfo, exists := si.files[uri]
	if !exists {
		return nil
	}

	seen := make(map[string]bool)

	var result []SymbolLocation

	for _, k := range fileInfo.Symbols {
		if seen[k] {
			continue
		}

		seen[k] = true

		for _, loc := range si.symbols[k] {
			if loc.Location.URI == uri {
				result = append(result, loc)
			}
		}
	}

	return result
}

// RemoveFile removes all symbols of a file.
func (si *SymbolIndex) RemoveFile(uri string) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.removeLocked(uri)
}

func (si *SymbolIndex) removeLocked(uri string) {
	fileInfo, exists := si.files[uri]
	if !exists {
		return
	}

	for _, k := range fileInfo.Symbols {
		locations := si.symbols[k]

		var remaining []SymbolLocation

		for _, loc := range locations {
			if loc.Location.URI != uri {
				remaining = append(remaining, loc)
			}
		}

		if len(remaining) > 0 {
			si.symbols[k] = remaining
		} else {
			delete(si.symbols, k)
		}
	}

	delete(si.files, uri)
}

// GetFileCount returns the number of files in the index.
func (si *SymbolIndex) GetFileCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	return len(si.files)
}

// GetSymbolCount returns the number of distinct names in the index.
func (si *SymbolIndex) GetSymbolCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	return len(si.symbols)
}

// GetTotalLocationCount returns the number of indexed locations.
func (si *SymbolIndex) GetTotalLocationCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	count := 0
	for _, locations := range si.symbols {
		count += len(locations)
	}

	return count
}

// Clear empties the index.
func (si *SymbolIndex) Clear() {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.symbols = make(map[string][]SymbolLocation)
	si.files = make(map[string]*FileInfo)
}

type scoredLocation struct {
	loc   SymbolLocation
	score float64
}

// Search returns symbols matching query, best match first.
//
// An exact name ranks above a prefix match, which ranks above a substring
// match. Names that contain none of the query are kept when their
// Jaro-Winkler similarity reaches fuzzyThreshold. An empty query lists every
// symbol by name. maxResults <= 0 means no limit.
func (si *SymbolIndex) Search(query string, maxResults int) []SymbolLocation {
	si.mutex.RLock()

	queryLower := strings.ToLower(query)

	var scored []scoredLocation

	for k, locations := range si.symbols {
		score, ok := matchScore(k, queryLower)
		if !ok {
			continue
		}

		for _, loc := range locations {
			scored = append(scored, scoredLocation{loc: loc, score: score})
		}
	}

	si.mutex.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}

		if a.loc.Name != b.loc.Name {
			return strings.ToLower(a.loc.Name) < strings.ToLower(b.loc.Name)
		}

		return a.loc.Location.URI < b.loc.Location.URI
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	results := make([]SymbolLocation, len(scored))
	for i, s := range scored {
		results[i] = s.loc
	}

	return results
}

func matchScore(name, query string) (float64, bool) {
	switch {
	case query == "":
		return 0, true
	case name == query:
		return 4, true
	case strings.HasPrefix(name, query):
		return 3, true
	case strings.Contains(name, query):
		return 2, true
	}

	similarity, err := edlib.StringsSimilarity(name, query, edlib.JaroWinkler)
	if err != nil || float64(similarity) < fuzzyThreshold {
		return 0, false
	}

	return float64(similarity), true
}
