package server

import (
	"sort"
	"sync"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
	"github.com/cespare/xxhash/v2"
)

// Document represents an open document in the workspace.
type Document struct {
	URI        string
	Path       string
	Text       string
	Version    int32
	LanguageID string

	// Hash is the xxhash of Text. The processor skips a reparse when it and the
	// hashes of the included files are unchanged.
	Hash uint64
}

// NewDocument creates a document for uri with a fresh content hash.
func NewDocument(uri, text string, version int32, languageID string) *Document {
	return &Document{
		URI:        uri,
		Path:       workspace.URIToPath(uri),
		Text:       text,
		Version:    version,
		LanguageID: languageID,
		Hash:       xxhash.Sum64String(text),
	}
}

// WithText returns a copy of the document with new text and version.
func (d *Document) WithText(text string, version int32) *Document {
	out := *d
	out.Text = text
	out.Version = version
	out.Hash = xxhash.Sum64String(text)

	return &out
}

// DocumentStore manages all open documents.
type DocumentStore struct {
	documents map[string]*Document
	byPath    map[string]string
	mu        sync.RWMutex
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
		byPath:    make(map[string]string),
	}
}

// Set stores or updates a document.
func (ds *DocumentStore) Set(uri string, doc *Document) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = doc
	if doc.Path != "" {
		ds.byPath[findings.NormalizePath(doc.Path)] = uri
	}
}

// Get retrieves a document by URI.
func (ds *DocumentStore) Get(uri string) (*Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]

	return doc, ok
}

// GetByPath retrieves a document by file path.
func (ds *DocumentStore) GetByPath(path string) (*Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	uri, ok := ds.byPath[findings.NormalizePath(path)]
	if !ok {
		return nil, false
	}

	doc, ok := ds.documents[uri]

	return doc, ok
}

// HasPath reports whether a document is open for path.
func (ds *DocumentStore) HasPath(path string) bool {
	_, ok := ds.GetByPath(path)
	return ok
}

// Delete removes a document from the store.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if doc, ok := ds.documents[uri]; ok && doc.Path != "" {
		delete(ds.byPath, findings.NormalizePath(doc.Path))
	}

	delete(ds.documents, uri)
}

// List returns all document URIs in sorted order.
func (ds *DocumentStore) List() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	uris := make([]string, 0, len(ds.documents))
	for uri := range ds.documents {
		uris = append(uris, uri)
	}

	sort.Strings(uris)

	return uris
}

// Clear removes all documents from the store.
func (ds *DocumentStore) Clear() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents = make(map[string]*Document)
	ds.byPath = make(map[string]string)
}
