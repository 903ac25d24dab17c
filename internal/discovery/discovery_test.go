package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const topSource = `CON
  CLK = 200_000_000

OBJ
  color : "isp_hub75_color"
  ser   : "jm_serial"

PUB main()
  color.init()
`

const driverSource = `OBJ
  ser : "jm_serial.spin2"

PUB start()
`

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, text := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
}

func newWorkspace(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"top.spin2":                    topSource,
		"isp_hub75_color.spin2":        "PUB init()\n",
		"lib/jm_serial.spin2":          "PUB tx(c)\n",
		"lib/jm_nstr.spin2":            "PUB str(s)\n",
		"drivers/hub75/driver.spin2":   driverSource,
		".hidden/jm_serial.spin2":      "PUB tx(c)\n",
		"node_modules/jm_serial.spin2": "PUB tx(c)\n",
	})

	return root
}

type recorder struct {
	mu     sync.Mutex
	events []ChangedParams
}

func (r *recorder) notify(method string, params any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if method == ChangedNotification {
		r.events = append(r.events, params.(ChangedParams))
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func TestRun_ComputesFolderIncludes(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newWorkspace(t)
	rec := &recorder{}
	d := New(Options{}, nil, rec.notify)

	changed, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.True(t, changed)

	expected := Policy{
		".":             {Auto: true, Dirs: []string{"lib/"}},
		"drivers/hub75": {Auto: true, Dirs: []string{"../../lib/"}},
		"lib":           {Auto: true, Dirs: []string{}},
	}
	assert.Equal(t, expected, d.Policy())

	require.Equal(t, 1, rec.count())
	assert.Equal(t, expected, rec.events[0].LocalIncludes)
}

func TestRun_LibraryInBuildStyleFolder(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"top.spin2":           "OBJ\n  ser : \"jm_serial\"\n",
		"obj/jm_serial.spin2": "PUB tx(c)\n",
		"build/helper.spin2":  "PUB help()\n",
	})

	d := New(Options{}, nil, nil)

	_, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Equal(t, Policy{
		".":     {Auto: true, Dirs: []string{"obj/"}},
		"obj":   {Auto: true, Dirs: []string{}},
		"build": {Auto: true, Dirs: []string{}},
	}, d.Policy())
	assert.Equal(t, []string{filepath.Join(root, "obj")}, d.IncludeDirsForFolder(root))
}

func TestRun_Idempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newWorkspace(t)
	rec := &recorder{}
	d := New(Options{}, nil, rec.notify)

	_, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)

	first, err := EncodePolicy(d.Policy())
	require.NoError(t, err)

	changed, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.False(t, changed)

	second, err := EncodePolicy(d.Policy())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, rec.count(), "an unchanged result is not announced")
}

func TestRun_PreservesCustomizedFolders(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newWorkspace(t)
	custom := FolderIncludes{Auto: false, Dirs: []string{"../../vendor_libs/", "../../lib/"}}
	d := New(Options{}, Policy{
		"drivers/hub75": custom,
		"removed/dir":   {Auto: false, Dirs: []string{"x/"}},
		"stale":         {Auto: true, Dirs: []string{"y/"}},
	}, nil)

	_, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)

	// changing the folder's references does not touch a customized entry
	writeFiles(t, root, map[string]string{
		"drivers/hub75/driver.spin2": "OBJ\n  n : \"jm_nstr\"\n  c : \"isp_hub75_color\"\n",
	})

	_, err = d.Run(context.Background(), []string{root})
	require.NoError(t, err)

	policy := d.Policy()
	assert.Equal(t, custom, policy["drivers/hub75"])
	assert.Equal(t, FolderIncludes{Auto: false, Dirs: []string{"x/"}}, policy["removed/dir"])
	assert.NotContains(t, policy, "stale", "auto entries are recomputed")
}

func TestRun_Exclusions(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newWorkspace(t)

	tests := []struct {
		name    string
		exclude []string
	}{
		{"relative path", []string{"drivers/"}},
		{"absolute path", []string{filepath.Join(root, "drivers")}},
		{"glob", []string{"driv*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(Options{Exclude: tt.exclude}, nil, nil)

			_, err := d.Run(context.Background(), []string{root})
			require.NoError(t, err)

			policy := d.Policy()
			assert.NotContains(t, policy, "drivers/hub75")
			assert.Equal(t, []string{"lib/"}, policy["."].Dirs)
		})
	}
}

func TestRun_Errors(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(Options{}, nil, nil)

	_, err := d.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoFolders)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	changed, err := d.Run(ctx, []string{newWorkspace(t)})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, changed)
	assert.Empty(t, d.Policy())
}

func TestRun_ConcurrentRunsSettle(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newWorkspace(t)
	rec := &recorder{}
	d := New(Options{Workers: 2}, nil, rec.notify)

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := d.Run(context.Background(), []string{root})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, []string{"lib/"}, d.Policy()["."].Dirs)
}

func TestRun_WritesPolicyFile(t *testing.T) {
	root := newWorkspace(t)
	path := PolicyPath(root)
	d := New(Options{PolicyFile: path}, nil, nil)

	_, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)

	loaded, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, d.Policy().Hash(), loaded.Hash())
	assert.Equal(t, []string{"../../lib/"}, loaded["drivers/hub75"].Dirs)
}

func TestIncludeDirsForFolder(t *testing.T) {
	root := newWorkspace(t)
	central := t.TempDir()

	d := New(Options{CentralLibraryPaths: []string{central, filepath.Join(root, "missing")}}, nil, nil)

	_, err := d.Run(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{filepath.Join(root, "lib"), central},
		d.IncludeDirsForFolder(filepath.Join(root, "drivers", "hub75")))

	assert.Equal(t, []string{central}, d.IncludeDirsForFolder(filepath.Join(root, "lib")))
}

func TestExtractObjReferences(t *testing.T) {
	text := `CON
  X = 1
{ OBJ
  hidden : "in_comment" }
OBJ
  ' commented : "nope"
  a     : "alpha"
  b[2]  : "beta.spin2" | RATE = 9600
  c     : "gamma.spin"
DAT
  byte "not an obj"
`
	assert.Equal(t, []string{"alpha.spin2", "beta.spin2", "gamma.spin"}, ExtractObjReferences(text))
}

func TestPolicyHash(t *testing.T) {
	a := Policy{"lib": {Auto: true, Dirs: nil}, ".": {Auto: true, Dirs: []string{"lib/"}}}
	b := Policy{".": {Auto: true, Dirs: []string{"lib/"}}, "lib": {Auto: true, Dirs: []string{}}}

	assert.Equal(t, a.Hash(), b.Hash())

	b["lib"] = FolderIncludes{Auto: false}
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestLoadPolicy_Missing(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Empty(t, policy)
}
