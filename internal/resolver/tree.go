package resolver

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
)

// NodeState is the resolution state of a dependency node.
type NodeState int

const (
	StateResolved NodeState = iota
	StateMissing
	StateCircular
)

func (s NodeState) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateMissing:
		return "missing"
	case StateCircular:
		return "circular"
	}

	return "unknown"
}

// DependencyType tells how a child is pulled in.
type DependencyType string

const (
	DependencyObj     DependencyType = "obj"
	DependencyInclude DependencyType = "include"
)

// Node is one file in a dependency tree.
type Node struct {
	FileName       string
	InstanceName   string
	FileSpec       string // absolute path, "" when missing
	State          NodeState
	Depth          int
	Children       []*Node
	DependencyType DependencyType
}

type wireNode struct {
	FileName       string         `json:"fileName"`
	InstanceName   string         `json:"instanceName"`
	FileSpec       string         `json:"fileSpec"`
	IsFileMissing  bool           `json:"isFileMissing"`
	IsCircular     bool           `json:"isCircular"`
	Depth          int            `json:"depth"`
	Children       []*Node        `json:"children"`
	DependencyType DependencyType `json:"dependencyType"`
}

// MarshalJSON encodes the node in the shape the editor client expects.
func (n *Node) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []*Node{}
	}

	return json.Marshal(wireNode{
		FileName:       n.FileName,
		InstanceName:   n.InstanceName,
		FileSpec:       n.FileSpec,
		IsFileMissing:  n.State == StateMissing,
		IsCircular:     n.State == StateCircular,
		Depth:          n.Depth,
		Children:       children,
		DependencyType: n.DependencyType,
	})
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)

	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Response is the result of the object dependency request.
type Response struct {
	TopFileName string `json:"topFileName"`
	Root        *Node  `json:"rootNode"`
	IsReady     bool   `json:"isReady"`
}

// FindingsSource gives access to published findings.
type FindingsSource interface {
	Get(path string) (*findings.Findings, bool)
}

// TreeBuilder builds dependency trees from published findings.
type TreeBuilder struct {
	Findings FindingsSource
	// HasDocument reports whether a document is loaded for path even though it
	// has no findings yet. May be nil.
	HasDocument func(path string) bool
	// IncludeDirs returns the extra search dirs for a folder. May be nil.
	IncludeDirs func(folder string) []string
}

// Tree builds the dependency tree rooted at path. IsReady is false when the
// file has not been parsed yet.
func (b *TreeBuilder) Tree(path string) Response {
	resp := Response{TopFileName: filepath.Base(path)}

	if _, ok := b.Findings.Get(path); !ok {
		return resp
	}

	resp.Root = b.Build(path, "", 0, nil)
	resp.IsReady = true

	return resp
}

// Build returns the node for path and, recursively, its children. ancestors
// holds the normalized paths from the root down to the parent of this node;
// it is copied before being extended, so siblings never see each other.
func (b *TreeBuilder) Build(path, instanceName string, depth int, ancestors map[string]bool) *Node {
	return b.build(path, instanceName, depth, ancestors, DependencyObj)
}

func ancestorKey(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

func (b *TreeBuilder) build(path, instanceName string, depth int, ancestors map[string]bool, depType DependencyType) *Node {
	node := &Node{
		FileName:       filepath.Base(path),
		InstanceName:   instanceName,
		FileSpec:       path,
		Depth:          depth,
		DependencyType: depType,
	}

	key := ancestorKey(path)
	if ancestors[key] {
		node.State = StateCircular
		return node
	}

	f, ok := b.Findings.Get(path)
	if !ok {
		if b.HasDocument == nil || !b.HasDocument(path) {
			node.State = StateMissing
			node.FileSpec = ""
		}

		return node
	}

	extended := make(map[string]bool, len(ancestors)+1)
	for k := range ancestors {
		extended[k] = true
	}

	extended[key] = true

	folder := filepath.Dir(path)

	var extraDirs []string
	if b.IncludeDirs != nil {
		extraDirs = b.IncludeDirs(folder)
	}

	for _, imp := range f.ObjectImports() {
		if childPath, found := ResolveFile(imp.FileName, folder, extraDirs); found {
			node.Children = append(node.Children, b.build(childPath, imp.InstanceName, depth+1, extended, DependencyObj))
			continue
		}

		node.Children = append(node.Children, &Node{
			FileName:       WithDefaultExtension(imp.FileName),
			InstanceName:   imp.InstanceName,
			State:          StateMissing,
			Depth:          depth + 1,
			DependencyType: DependencyObj,
		})
	}

	includeNames := IncludeNamesForFilename(f, node.FileName)
	if len(includeNames) == 0 {
		return node
	}

	resolved := ResolveReferencedIncludes(includeNames, folder, extraDirs)

	for _, name := range includeNames {
		matched := ""
		lowerName := strings.ToLower(name)

		for _, candidate := range resolved {
			if candidate != "" && strings.Contains(strings.ToLower(filepath.Base(candidate)), lowerName) {
				matched = candidate
				break
			}
		}

		if matched != "" {
			node.Children = append(node.Children, b.build(matched, name, depth+1, extended, DependencyInclude))
			continue
		}

		node.Children = append(node.Children, &Node{
			FileName:       name,
			InstanceName:   name,
			State:          StateMissing,
			Depth:          depth + 1,
			DependencyType: DependencyInclude,
		})
	}

	return node
}
