package resolver

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
)

// publish writes the source file and stores its findings.
func publish(t *testing.T, store *findings.Store, path, src string) {
	t.Helper()

	writeFile(t, path, src)
	store.Set(path, parser.Parse(src, parser.Options{Path: path, Flexspin: true}))
}

func TestTree_ExampleScenario(t *testing.T) {
	dir := t.TempDir()
	store := findings.NewStore()

	mainPath := filepath.Join(dir, "main.spin2")
	colorPath := filepath.Join(dir, "isp_hub75_color.spin2")

	publish(t, store, mainPath, "OBJ\n  color : \"isp_hub75_color\"\n\nPUB go()\n  color.init()\n")
	publish(t, store, colorPath, "PUB init()\n")

	b := &TreeBuilder{Findings: store}
	resp := b.Tree(mainPath)

	want := Response{
		TopFileName: "main.spin2",
		IsReady:     true,
		Root: &Node{
			FileName:       "main.spin2",
			FileSpec:       mainPath,
			DependencyType: DependencyObj,
			Children: []*Node{{
				FileName:       "isp_hub75_color.spin2",
				InstanceName:   "color",
				FileSpec:       colorPath,
				Depth:          1,
				DependencyType: DependencyObj,
			}},
		},
	}

	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("Tree() mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_CycleTerminates(t *testing.T) {
	dir := t.TempDir()
	store := findings.NewStore()

	a := filepath.Join(dir, "a.spin2")
	b := filepath.Join(dir, "b.spin2")
	c := filepath.Join(dir, "c.spin2")

	publish(t, store, a, "OBJ\n  child : \"b\"\n")
	publish(t, store, b, "OBJ\n  child : \"c\"\n")
	publish(t, store, c, "OBJ\n  back : \"a\"\n")

	root := (&TreeBuilder{Findings: store}).Build(a, "", 0, nil)

	want := &Node{
		FileName: "a.spin2", FileSpec: a, DependencyType: DependencyObj,
		Children: []*Node{{
			FileName: "b.spin2", InstanceName: "child", FileSpec: b, Depth: 1, DependencyType: DependencyObj,
			Children: []*Node{{
				FileName: "c.spin2", InstanceName: "child", FileSpec: c, Depth: 2, DependencyType: DependencyObj,
				Children: []*Node{{
					FileName: "a.spin2", InstanceName: "back", FileSpec: a, Depth: 3,
					State: StateCircular, DependencyType: DependencyObj,
				}},
			}},
		}},
	}

	if diff := cmp.Diff(want, root); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_SiblingsAreNotAncestors(t *testing.T) {
	dir := t.TempDir()
	store := findings.NewStore()

	top := filepath.Join(dir, "top.spin2")
	publish(t, store, top, "OBJ\n  left : \"leaf\"\n  right : \"leaf\"\n")
	publish(t, store, filepath.Join(dir, "leaf.spin2"), "CON X = 1\n")

	root := (&TreeBuilder{Findings: store}).Build(top, "", 0, nil)

	require.Len(t, root.Children, 2)

	for _, child := range root.Children {
		assert.Equal(t, StateResolved, child.State)
	}
}

func TestTree_MissingAndUnparsed(t *testing.T) {
	dir := t.TempDir()
	store := findings.NewStore()

	top := filepath.Join(dir, "top.spin2")
	publish(t, store, top, "OBJ\n  gone : \"nothere\"\n  later : \"pending\"\n")

	// pending exists on disk but has not been parsed
	pending := writeFile(t, filepath.Join(dir, "pending.spin2"), "PUB x()\n")

	root := (&TreeBuilder{Findings: store}).Build(top, "", 0, nil)
	require.Len(t, root.Children, 2)

	assert.Equal(t, "nothere.spin2", root.Children[0].FileName)
	assert.Equal(t, StateMissing, root.Children[0].State)
	assert.Empty(t, root.Children[0].FileSpec)

	assert.Equal(t, StateMissing, root.Children[1].State)

	withDoc := &TreeBuilder{
		Findings:    store,
		HasDocument: func(path string) bool { return path == pending },
	}

	root = withDoc.Build(top, "", 0, nil)
	assert.Equal(t, StateResolved, root.Children[1].State)
	assert.Equal(t, pending, root.Children[1].FileSpec)
}

func TestTree_IncludeChildren(t *testing.T) {
	dir := t.TempDir()
	libDir := t.TempDir()
	store := findings.NewStore()

	defs := filepath.Join(libDir, "defs.spin2")
	publish(t, store, defs, "CON SHARED = 1\n")

	top := filepath.Join(dir, "top.spin2")
	publish(t, store, top, "#include \"defs\"\n#include \"absent.spin2\"\nCON\n  X = SHARED\n")

	b := &TreeBuilder{
		Findings:    store,
		IncludeDirs: func(string) []string { return []string{libDir} },
	}

	root := b.Build(top, "", 0, nil)
	require.Len(t, root.Children, 2)

	assert.Equal(t, DependencyInclude, root.Children[0].DependencyType)
	assert.Equal(t, defs, root.Children[0].FileSpec)
	assert.Equal(t, "defs", root.Children[0].InstanceName)

	assert.Equal(t, StateMissing, root.Children[1].State)
	assert.Equal(t, "absent.spin2", root.Children[1].FileName)
}

func TestTree_NotReady(t *testing.T) {
	resp := (&TreeBuilder{Findings: findings.NewStore()}).Tree("/nowhere/main.spin2")

	assert.False(t, resp.IsReady)
	assert.Nil(t, resp.Root)
	assert.Equal(t, "main.spin2", resp.TopFileName)
}

func TestNode_MarshalJSON(t *testing.T) {
	node := &Node{FileName: "x.spin2", InstanceName: "x", State: StateMissing, Depth: 1, DependencyType: DependencyObj}

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, true, decoded["isFileMissing"])
	assert.Equal(t, false, decoded["isCircular"])
	assert.Equal(t, "obj", decoded["dependencyType"])
	assert.Equal(t, []any{}, decoded["children"])
}
