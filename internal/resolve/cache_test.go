package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(3, time.Hour)
	c.Put("A", Result{Status: StatusOK, ResolvedURL: "a"})
	c.Put("B", Result{Status: StatusOK, ResolvedURL: "b"})
	c.Put("C", Result{Status: StatusOK, ResolvedURL: "c"})
	_, ok := c.Get("A")
	require.True(t, ok)
	c.Put("D", Result{Status: StatusOK, ResolvedURL: "d"})

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("B")
	assert.False(t, ok, "B should have been evicted")
	for _, k := range []string{"A", "C", "D"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k+" should remain")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := NewCache(10, 10*time.Millisecond)
	c.Put("A", Result{Status: StatusOK})
	_, ok := c.Get("A")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("A")
	assert.False(t, ok)
}

func TestCache_MemoizesFailures(t *testing.T) {
	c := NewCache(10, time.Hour)
	c.Put("zzz unknown", Result{Status: StatusFailed})
	got, ok := c.Get("zzz unknown")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.True(t, got.FromCache)
}

func TestCache_UpdateInPlacePromotes(t *testing.T) {
	c := NewCache(2, time.Hour)
	c.Put("A", Result{Status: StatusFailed})
	c.Put("B", Result{Status: StatusOK})
	c.Put("A", Result{Status: StatusOK, ResolvedURL: "updated"})
	c.Put("C", Result{Status: StatusOK})

	_, ok := c.Get("B")
	assert.False(t, ok, "B should be evicted since A was refreshed more recently")
	got, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, "updated", got.ResolvedURL)
}

func TestCache_NeverExceedsMaxSize(t *testing.T) {
	c := NewCache(5, time.Hour)
	for i := 0; i < 100; i++ {
		c.Put(string(rune('a'+(i%26)))+string(rune(i)), Result{Status: StatusOK})
		assert.LessOrEqual(t, c.Len(), 5)
	}
}
