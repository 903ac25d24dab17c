package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/pelletier/go-toml/v2"
)

// PolicyDir and PolicyFileName locate the persisted policy below a workspace
// root.
const (
	PolicyDir      = ".spin2"
	PolicyFileName = "includes.toml"
)

// FolderIncludes is the include-directory entry of one folder. Auto entries
// are owned by discovery; an entry with Auto false was edited by the user and
// is never recomputed.
type FolderIncludes struct {
	Auto bool     `json:"auto" toml:"auto"`
	Dirs []string `json:"dirs" toml:"dirs"`
}

// Policy maps workspace-relative folder paths ("." for the root) to their
// include directories.
type Policy map[string]FolderIncludes

// Clone returns a deep copy.
func (p Policy) Clone() Policy {
	out := make(Policy, len(p))
	for folder, entry := range p {
		dirs := make([]string, len(entry.Dirs))
		copy(dirs, entry.Dirs)
		out[folder] = FolderIncludes{Auto: entry.Auto, Dirs: dirs}
	}

	return out
}

// Folders returns the folder keys in sorted order.
func (p Policy) Folders() []string {
	folders := make([]string, 0, len(p))
	for folder := range p {
		folders = append(folders, folder)
	}

	sort.Strings(folders)

	return folders
}

// Hash returns the xxhash of the canonical JSON form. Two policies with the
// same entries hash the same regardless of map order or nil-vs-empty dirs.
func (p Policy) Hash() uint64 {
	canonical := make(Policy, len(p))
	for folder, entry := range p {
		if entry.Dirs == nil {
			entry.Dirs = []string{}
		}

		canonical[folder] = entry
	}

	// map keys are sorted by encoding/json
	data, err := json.Marshal(canonical)
	if err != nil {
		return 0
	}

	return xxhash.Sum64(data)
}

type policyDocument struct {
	Folders Policy `toml:"folders"`
}

// PolicyPath returns the policy file location for a workspace root.
func PolicyPath(root string) string {
	return filepath.Join(root, PolicyDir, PolicyFileName)
}

// EncodePolicy renders a policy as TOML.
func EncodePolicy(p Policy) ([]byte, error) {
	if p == nil {
		p = Policy{}
	}

	data, err := toml.Marshal(policyDocument{Folders: p})
	if err != nil {
		return nil, fmt.Errorf("encoding include policy: %w", err)
	}

	return data, nil
}

// DecodePolicy parses a TOML policy.
func DecodePolicy(data []byte) (Policy, error) {
	var doc policyDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding include policy: %w", err)
	}

	if doc.Folders == nil {
		doc.Folders = Policy{}
	}

	return doc.Folders, nil
}

// LoadPolicy reads a policy file. A missing file yields an empty policy.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Policy{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading include policy %s: %w", path, err)
	}

	return DecodePolicy(data)
}

// SavePolicy writes a policy file, creating its directory.
func SavePolicy(path string, p Policy) error {
	data, err := EncodePolicy(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing include policy %s: %w", path, err)
	}

	return nil
}
