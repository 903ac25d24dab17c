package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/CWBudde/go-spin2-lsp/internal/discovery"
	"github.com/pelletier/go-toml/v2"
)

// SettingsNamespace is the key of our section in workspace/didChangeConfiguration.
const SettingsNamespace = "spin2"

// ConfigFileName is the optional per-workspace config file below discovery.PolicyDir.
const ConfigFileName = "config.toml"

// Config holds server configuration options.
type Config struct {
	// MaxProblems limits the number of diagnostics reported per file.
	// A negative value means no limit.
	MaxProblems int `toml:"max_problems"`

	// HighlightFlexspinDirectives enables the #include/#define preprocessor.
	HighlightFlexspinDirectives bool `toml:"highlight_flexspin_directives"`

	// CentralLibraryPaths are shared object folders searched after the local
	// include directories and never touched by a rename.
	CentralLibraryPaths []string `toml:"central_library_paths"`

	// AuthorFilePrefix limits renames to files named "<prefix>_...".
	AuthorFilePrefix string `toml:"author_file_prefix"`

	// IncludeDirectories is the per-folder include map, keyed by the folder
	// path relative to the workspace root.
	IncludeDirectories discovery.Policy `toml:"include_directories"`

	// ExcludeDirs are directories or globs that include discovery skips.
	ExcludeDirs []string `toml:"exclude_dirs"`

	// AutoDiscovery runs include discovery on startup and on file changes.
	AutoDiscovery bool `toml:"auto_discovery"`

	// Trace controls logging verbosity.
	Trace string `toml:"trace"`
}

// DefaultConfig returns the configuration used before any settings arrive.
func DefaultConfig() *Config {
	return &Config{
		MaxProblems:        -1,
		IncludeDirectories: discovery.Policy{},
		AutoDiscovery:      true,
		Trace:              "off",
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	out := *c
	out.CentralLibraryPaths = append([]string(nil), c.CentralLibraryPaths...)
	out.ExcludeDirs = append([]string(nil), c.ExcludeDirs...)
	out.IncludeDirectories = c.IncludeDirectories.Clone()

	return &out
}

// ConfigPath returns the default config file location for a workspace root.
func ConfigPath(root string) string {
	return filepath.Join(root, discovery.PolicyDir, ConfigFileName)
}

// LoadConfigFile reads a TOML config file over the defaults. A missing file
// yields the defaults.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.IncludeDirectories == nil {
		cfg.IncludeDirectories = discovery.Policy{}
	}

	return cfg, nil
}

// ApplySettings updates the config from the client settings object. Only the
// keys present in settings are changed. It reports whether anything that
// affects parsing changed, in which case open documents must be reparsed.
func (c *Config) ApplySettings(settings map[string]any) bool {
	reparse := false

	if v, ok := settings["maxNumberOfReportedIssues"].(float64); ok {
		if int(v) != c.MaxProblems {
			c.MaxProblems = int(v)
			log.Printf("Configuration updated: maxNumberOfReportedIssues = %d\n", c.MaxProblems)
		}
	}

	if v, ok := settings["highlightFlexspinDirectives"].(bool); ok && v != c.HighlightFlexspinDirectives {
		c.HighlightFlexspinDirectives = v
		reparse = true

		log.Printf("Configuration updated: highlightFlexspinDirectives = %t\n", v)
	}

	if v, ok := settings["centralLibraryPaths"]; ok {
		c.CentralLibraryPaths = stringList(v)
		reparse = true
	}

	if v, ok := settings["authorFilePrefix"].(string); ok {
		c.AuthorFilePrefix = v
	}

	if v, ok := settings["excludeIncludeDirectories"]; ok {
		c.ExcludeDirs = stringList(v)
	}

	if v, ok := settings["localIncludes"].(map[string]any); ok {
		c.IncludeDirectories = policyFromSettings(v)
		reparse = true
	}

	if v, ok := settings["autoDiscoverIncludes"].(bool); ok {
		c.AutoDiscovery = v
	}

	if v, ok := settings["trace"].(string); ok {
		c.Trace = v
		log.Printf("Configuration updated: trace = %s\n", v)
	}

	return reparse
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}

	return out
}

// policyFromSettings converts the JSON form {"folder": {"auto": bool, "dirs": [...]}}.
func policyFromSettings(raw map[string]any) discovery.Policy {
	policy := make(discovery.Policy, len(raw))

	for folder, value := range raw {
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}

		auto, _ := entry["auto"].(bool)
		dirs := stringList(entry["dirs"])

		if dirs == nil {
			dirs = []string{}
		}

		policy[folder] = discovery.FolderIncludes{Auto: auto, Dirs: dirs}
	}

	return policy
}
