package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestResolveReferencedIncludes_FirstMatchWins(t *testing.T) {
	root := t.TempDir()
	lib := t.TempDir()

	local := writeFile(t, filepath.Join(root, "driver.spin2"), "")
	writeFile(t, filepath.Join(lib, "driver.spin2"), "")
	libOnly := writeFile(t, filepath.Join(lib, "Serial_Port.spin2"), "")

	got := ResolveReferencedIncludes([]string{"driver", "serial_port", "absent"}, root, []string{lib})

	assert.Equal(t, []string{local, libOnly, ""}, got)
}

func TestResolveReferencedIncludes_ExtraDirOrder(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")

	writeFile(t, filepath.Join(second, "util.spin2"), "")
	want := writeFile(t, filepath.Join(first, "util.spin2"), "")

	got := ResolveReferencedIncludes([]string{"util"}, root, []string{"first/", second})
	assert.Equal(t, []string{want}, got)
}

func TestResolveReferencedIncludes_ExplicitExtension(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "pins.spin"), "")
	want := writeFile(t, filepath.Join(root, "pins.spin2"), "")
	writeFile(t, filepath.Join(root, "pins.txt"), "")

	path, ok := ResolveFile("pins.spin2", root, nil)
	require.True(t, ok)
	assert.Equal(t, want, path)

	// without an extension the first Spin file in name order wins
	path, ok = ResolveFile("PINS", root, nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "pins.spin"), path)
}

func TestResolveReferencedIncludes_MissingDir(t *testing.T) {
	got := ResolveReferencedIncludes([]string{"x"}, filepath.Join(t.TempDir(), "gone"), []string{"/does/not/exist"})
	assert.Equal(t, []string{""}, got)
}

func TestIsSpinFile(t *testing.T) {
	assert.True(t, IsSpinFile("a.spin2"))
	assert.True(t, IsSpinFile("A.SPIN"))
	assert.True(t, IsSpinFile("boot.p2asm"))
	assert.False(t, IsSpinFile("notes.txt"))
	assert.False(t, IsSpinFile("spin2"))
}

func TestWithDefaultExtension(t *testing.T) {
	assert.Equal(t, "color.spin2", WithDefaultExtension("color"))
	assert.Equal(t, "color.spin", WithDefaultExtension("color.spin"))
}

func TestIncludeNamesForFilename(t *testing.T) {
	f := findings.New("/work/main.spin2")
	f.RecordInclude(findings.IncludeImport{FileName: "defs", IncludingFile: "main.spin2", FileRange: position.NewRange(0, 10, 4)})
	f.RecordInclude(findings.IncludeImport{FileName: "other", IncludingFile: "top.spin2"})

	assert.Equal(t, []string{"defs"}, IncludeNamesForFilename(f, "MAIN.spin2"))
	assert.Empty(t, IncludeNamesForFilename(nil, "main.spin2"))
}
