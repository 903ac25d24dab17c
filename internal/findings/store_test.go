package findings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReplaceIsAtomic(t *testing.T) {
	store := NewStore()

	first := New("/work/a.spin2")
	store.Set("/work/a.spin2", first)

	second := New("/work/a.spin2")
	store.Set("/work/./a.spin2", second)

	got, ok := store.Get("/work/a.spin2")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.True(t, got.IsFrozen())
	assert.Equal(t, 1, store.Len())
}

func TestStoreConcurrentReaders(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			f := New("/work/a.spin2")
			f.Version = uint64(i)
			store.Set("/work/a.spin2", f)

			got, ok := store.Get("/work/a.spin2")
			assert.True(t, ok)
			assert.True(t, got.IsFrozen())
		}(i)
	}

	wg.Wait()

	store.Delete("/work/a.spin2")
	assert.Empty(t, store.Paths())
}
