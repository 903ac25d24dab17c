// Package server provides the core LSP server state and management.
package server

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/discovery"
	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/query"
	"github.com/CWBudde/go-spin2-lsp/internal/rename"
	"github.com/CWBudde/go-spin2-lsp/internal/resolver"
	"github.com/CWBudde/go-spin2-lsp/internal/workspace"
)

// WatchDebounce is how long file system events are collected before they are
// handled as one batch.
const WatchDebounce = 300 * time.Millisecond

// Server holds the state of the LSP server.
type Server struct {
	// documents stores all open documents
	documents *DocumentStore

	// findings holds the published symbol tables of open and preloaded files
	findings *findings.Store

	// workspaceIndex stores workspace-wide symbol definitions for global symbol search
	workspaceIndex *workspace.SymbolIndex
	indexReady     bool

	processor  *Processor
	engine     *query.Engine
	discoverer *discovery.Discoverer
	watcher    *workspace.Watcher

	// workspaceFolders stores the workspace folder paths from the client
	workspaceFolders []string

	// clientCapabilities stores the client's capabilities from the initialize request
	clientCapabilities *protocol.ClientCapabilities

	// config holds server configuration
	config     *Config
	configFile string

	// semanticTokensLegend defines the token types and modifiers for semantic highlighting
	semanticTokensLegend *SemanticTokensLegend

	notify    discovery.Notifier
	onRefresh func(paths []string)

	// mutex protects server state
	mu sync.RWMutex

	// shutting down flag
	shuttingDown bool
}

// New creates a new LSP server instance.
func New() *Server {
	s := &Server{
		documents:            NewDocumentStore(),
		findings:             findings.NewStore(),
		workspaceIndex:       workspace.NewSymbolIndex(),
		semanticTokensLegend: NewSemanticTokensLegend(),
		config:               DefaultConfig(),
	}

	s.discoverer = discovery.New(s.discoveryOptions(s.config), s.config.IncludeDirectories, s.sendNotification)
	s.processor = NewProcessor(s.documents, s.findings, s.workspaceIndex, s.discoverer.IncludeDirsForFolder, s.flexspin)
	s.engine = query.New(s.findings, s.discoverer.IncludeDirsForFolder)

	return s
}

// IsShuttingDown returns true if the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.shuttingDown
}

// SetShuttingDown marks the server as shutting down and stops the file watcher.
func (s *Server) SetShuttingDown() {
	s.mu.Lock()
	s.shuttingDown = true
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			log.Printf("Warning: closing file watcher: %v\n", err)
		}
	}
}

// Documents returns the document store.
func (s *Server) Documents() *DocumentStore {
	return s.documents
}

// Findings returns the published findings.
func (s *Server) Findings() *findings.Store {
	return s.findings
}

// Processor returns the document processor.
func (s *Server) Processor() *Processor {
	return s.processor
}

// Engine returns the cross-document query engine.
func (s *Server) Engine() *query.Engine {
	return s.engine
}

// Discoverer returns the include-directory discoverer.
func (s *Server) Discoverer() *discovery.Discoverer {
	return s.discoverer
}

// DependencyTree returns the tree builder for the object dependency request.
func (s *Server) DependencyTree() *resolver.TreeBuilder {
	return s.processor.Tree()
}

// WorkspaceIndex returns the workspace-wide symbol index.
func (s *Server) WorkspaceIndex() *workspace.SymbolIndex {
	return s.workspaceIndex
}

// IsIndexReady reports whether the initial workspace indexing finished.
func (s *Server) IsIndexReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexReady
}

// Config returns a copy of the server configuration.
func (s *Server) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config.Clone()
}

// UpdateConfig updates the server configuration atomically.
// The update function is called with the current config under a write lock.
func (s *Server) UpdateConfig(update func(*Config)) {
	s.mu.Lock()
	update(s.config)
	cfg := s.config.Clone()
	s.mu.Unlock()

	s.syncDiscoverer(cfg)
}

// ApplySettings applies client settings from the spin2 namespace and reparses
// the open documents when a setting that affects parsing changed. It returns
// the reparsed paths.
func (s *Server) ApplySettings(settings map[string]any) []string {
	var reparse bool

	s.UpdateConfig(func(cfg *Config) {
		reparse = cfg.ApplySettings(settings)
	})

	if !reparse {
		return nil
	}

	return s.processor.ReprocessAll()
}

func (s *Server) syncDiscoverer(cfg *Config) {
	s.discoverer.SetOptions(s.discoveryOptions(cfg))

	if cfg.IncludeDirectories.Hash() != s.discoverer.Policy().Hash() {
		s.discoverer.SetPolicy(cfg.IncludeDirectories)
	}
}

func (s *Server) discoveryOptions(cfg *Config) discovery.Options {
	opts := discovery.Options{
		Exclude:             cfg.ExcludeDirs,
		CentralLibraryPaths: cfg.CentralLibraryPaths,
	}

	if root := s.rootFolder(); root != "" {
		opts.PolicyFile = discovery.PolicyPath(root)
	}

	return opts
}

func (s *Server) flexspin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config.HighlightFlexspinDirectives
}

// Planner returns a rename planner using the current ownership settings.
func (s *Server) Planner() *rename.Planner {
	cfg := s.Config()

	return &rename.Planner{
		Findings: s.findings,
		Policy: rename.Policy{
			CentralLibraryPaths: cfg.CentralLibraryPaths,
			AuthorPrefix:        cfg.AuthorFilePrefix,
		},
	}
}

// SetConfigFile sets an explicit config file, loaded by LoadWorkspaceConfig
// instead of the one below the workspace root.
func (s *Server) SetConfigFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configFile = path
}

// LoadWorkspaceConfig loads the config file and the stored include policy of
// the workspace root. Client settings arriving later override both.
func (s *Server) LoadWorkspaceConfig() error {
	root := s.rootFolder()

	s.mu.RLock()
	path := s.configFile
	s.mu.RUnlock()

	if path == "" {
		if root == "" {
			return nil
		}

		path = ConfigPath(root)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return err
	}

	if root != "" && len(cfg.IncludeDirectories) == 0 {
		policy, err := discovery.LoadPolicy(discovery.PolicyPath(root))
		if err != nil {
			log.Printf("Warning: %v\n", err)
		} else {
			cfg.IncludeDirectories = policy
		}
	}

	s.UpdateConfig(func(current *Config) {
		*current = *cfg
	})

	return nil
}

// SetWorkspaceFolders sets the workspace folders. Entries may be paths or file
// URIs; the first folder is the workspace root.
func (s *Server) SetWorkspaceFolders(folders []string) {
	paths := make([]string, 0, len(folders))
	for _, folder := range folders {
		if path := workspace.URIToPath(folder); path != "" {
			paths = append(paths, filepath.Clean(path))
		}
	}

	s.mu.Lock()
	s.workspaceFolders = paths
	cfg := s.config.Clone()
	s.mu.Unlock()

	if len(paths) > 0 {
		s.discoverer.SetRoot(paths[0])
	}

	s.discoverer.SetOptions(s.discoveryOptions(cfg))
}

// GetWorkspaceFolders returns the workspace folder paths.
func (s *Server) GetWorkspaceFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.workspaceFolders...)
}

func (s *Server) rootFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.workspaceFolders) == 0 {
		return ""
	}

	return s.workspaceFolders[0]
}

// SetClientCapabilities sets the client's capabilities.
func (s *Server) SetClientCapabilities(capabilities *protocol.ClientCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clientCapabilities = capabilities
}

// GetClientCapabilities returns the client's capabilities.
func (s *Server) GetClientCapabilities() *protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clientCapabilities
}

// SetNotifier sets the function that sends notifications to the client.
func (s *Server) SetNotifier(notify discovery.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notify = notify
}

func (s *Server) sendNotification(method string, params any) {
	s.mu.RLock()
	notify := s.notify
	s.mu.RUnlock()

	if notify != nil {
		notify(method, params)
	}
}

// OnRefresh sets the function called with the paths of open documents whose
// findings changed without an edit, so their diagnostics can be republished.
func (s *Server) OnRefresh(fn func(paths []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onRefresh = fn
}

func (s *Server) refresh(paths []string) {
	if len(paths) == 0 {
		return
	}

	s.mu.RLock()
	fn := s.onRefresh
	s.mu.RUnlock()

	if fn != nil {
		fn(paths)
	}
}

// SemanticTokensLegend returns the semantic tokens legend.
// The legend is immutable and shared across all requests.
func (s *Server) SemanticTokensLegend() *SemanticTokensLegend {
	return s.semanticTokensLegend
}

// RunDiscovery runs include discovery over the workspace folders. When the
// policy changed, the config follows it and the open documents are reparsed.
func (s *Server) RunDiscovery(ctx context.Context) (bool, error) {
	changed, err := s.discoverer.Run(ctx, s.GetWorkspaceFolders())
	if err != nil || !changed {
		return changed, err
	}

	policy := s.discoverer.Policy()

	s.mu.Lock()
	s.config.IncludeDirectories = policy
	s.mu.Unlock()

	s.refresh(s.processor.ReprocessAll())

	return true, nil
}

// StartBackgroundWork starts workspace indexing, the first discovery run and
// the file watcher. Failures are logged; the server keeps working without them.
func (s *Server) StartBackgroundWork() {
	folders := s.GetWorkspaceFolders()
	if len(folders) == 0 {
		return
	}

	cfg := s.Config()

	if cfg.AutoDiscovery {
		go s.discoverAsync()
	}

	indexer := workspace.NewIndexer(s.workspaceIndex, workspace.NewWalker(cfg.ExcludeDirs), s.processor.ParseUnopened)
	indexer.IndexWorkspaceAsync(folders, func() {
		s.mu.Lock()
		s.indexReady = true
		s.mu.Unlock()
	})

	if err := s.startWatcher(folders, cfg); err != nil {
		log.Printf("Warning: file watcher not started: %v\n", err)
	}
}

// ChangeWorkspaceFolders applies a workspace folder change from the client.
// Added folders are indexed, the watcher follows the new folder set and
// include discovery runs again.
func (s *Server) ChangeWorkspaceFolders(added, removed []string) {
	gone := make(map[string]bool, len(removed))
	for _, folder := range removed {
		gone[filepath.Clean(workspace.URIToPath(folder))] = true
	}

	var folders []string

	for _, folder := range s.GetWorkspaceFolders() {
		if !gone[folder] {
			folders = append(folders, folder)
		}
	}

	var fresh []string

	for _, folder := range added {
		path := filepath.Clean(workspace.URIToPath(folder))
		if !gone[path] {
			folders = append(folders, path)
			fresh = append(fresh, path)
		}
	}

	s.SetWorkspaceFolders(folders)

	cfg := s.Config()

	if len(fresh) > 0 {
		indexer := workspace.NewIndexer(s.workspaceIndex, workspace.NewWalker(cfg.ExcludeDirs), s.processor.ParseUnopened)
		indexer.IndexWorkspaceAsync(fresh, nil)
	}

	s.mu.Lock()
	old := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	if len(folders) > 0 {
		if err := s.startWatcher(folders, cfg); err != nil {
			log.Printf("Warning: file watcher not restarted: %v\n", err)
		}
	}

	if cfg.AutoDiscovery {
		go s.discoverAsync()
	}
}

func (s *Server) discoverAsync() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in include discovery: %v\n", r)
		}
	}()

	if _, err := s.RunDiscovery(context.Background()); err != nil {
		log.Printf("Warning: include discovery failed: %v\n", err)
	}
}

func (s *Server) startWatcher(folders []string, cfg *Config) error {
	watcher, err := workspace.NewWatcher(workspace.NewWalker(cfg.ExcludeDirs), WatchDebounce, s.HandleFileChanges)
	if err != nil {
		return err
	}

	if err := watcher.Start(folders); err != nil {
		_ = watcher.Close()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown {
		return watcher.Close()
	}

	s.watcher = watcher

	return nil
}

// HandleFileChanges reparses unopened Spin files changed on disk, drops
// deleted ones, refreshes the open documents depending on them and re-runs
// include discovery.
func (s *Server) HandleFileChanges(changes []workspace.Change) {
	var affected []string

	spinChanged := false

	for _, change := range changes {
		if !resolver.IsSpinFile(change.Path) {
			continue
		}

		spinChanged = true

		switch {
		case change.Kind == workspace.ChangeRemoved:
			// the dependents can no longer be resolved, so every open document is refreshed
			s.processor.Remove(change.Path)
			affected = append(affected, s.processor.ReprocessAll()...)

			continue
		case s.documents.HasPath(change.Path):
			// the editor buffer wins over the file on disk
			continue
		default:
			if _, err := s.processor.Reprocess(change.Path); err != nil {
				log.Printf("Warning: %v\n", err)
				continue
			}
		}

		affected = append(affected, s.processor.ProcessEnclosing(change.Path)...)
	}

	s.refresh(affected)

	if spinChanged && s.Config().AutoDiscovery {
		s.discoverAsync()
	}
}
