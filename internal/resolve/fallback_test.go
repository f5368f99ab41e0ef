package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// seedFailure lets fallback-chain tests avoid spinning up a real browser:
// the resolver hits the pre-seeded cache entry and the ladder logic runs
// without any navigation.
func seedFailure(t *testing.T, cache *Cache, query string) {
	t.Helper()
	cache.Put(query, Result{Status: StatusFailed, Error: "no matching links found"})
}

func TestChain_SearchFallback(t *testing.T) {
	cache := NewCache(10, time.Hour)
	seedFailure(t, cache, "zzz unknown")
	resolver := NewResolver(ResolverConfig{SearchEngineURL: "https://duckduckgo.com/?q={query}"}, cache)

	chain := NewChain(resolver, FallbackConfig{
		EnableSearchFallback: true,
		SearchEngineURL:      "https://duckduckgo.com/?q={query}",
	})

	res := chain.Resolve(context.Background(), "zzz unknown")
	assert.Equal(t, FallbackOK, res.Status)
	assert.Equal(t, RungSearch, res.Rung)
	assert.Equal(t, "https://duckduckgo.com/?q=zzz+unknown", res.FinalURL)
}

func TestChain_AllFailed(t *testing.T) {
	cache := NewCache(10, time.Hour)
	seedFailure(t, cache, "zzz unknown")
	resolver := NewResolver(ResolverConfig{}, cache)

	chain := NewChain(resolver, FallbackConfig{})
	res := chain.Resolve(context.Background(), "zzz unknown")
	assert.Equal(t, FallbackAllFailed, res.Status)
	assert.Equal(t, RungNone, res.Rung)
}

func TestChain_HomepageFallback(t *testing.T) {
	cache := NewCache(10, time.Hour)
	seedFailure(t, cache, "github")
	resolver := NewResolver(ResolverConfig{}, cache)

	chain := NewChain(resolver, FallbackConfig{EnableHomepageFallback: true})
	res := chain.Resolve(context.Background(), "github")
	assert.Equal(t, FallbackOK, res.Status)
	assert.Equal(t, RungHomepage, res.Rung)
	assert.Equal(t, "https://github.com", res.FinalURL)
}
