package resolve

import (
	"context"

	"handsfree/internal/logging"
	"handsfree/internal/safety"
)

// FallbackConfig toggles the optional rungs of the ladder.
type FallbackConfig struct {
	EnableSearchFallback   bool
	EnableHomepageFallback bool
	SearchEngineURL        string
}

// Chain tries the resolver, then (if enabled) a search-engine URL, then (if
// enabled) a bare domain homepage, in that order, stopping at the first
// success.
type Chain struct {
	resolver *Resolver
	cfg      FallbackConfig
}

// NewChain constructs a fallback chain wrapping a resolver.
func NewChain(resolver *Resolver, cfg FallbackConfig) *Chain {
	return &Chain{resolver: resolver, cfg: cfg}
}

// Resolve runs the ordered ladder for a single query.
func (c *Chain) Resolve(ctx context.Context, query string) FallbackResult {
	var attempts []string

	inner := c.resolver.Resolve(ctx, query)
	attempts = append(attempts, "resolution")
	if inner.Status == StatusOK && inner.ResolvedURL != "" {
		return FallbackResult{Status: FallbackOK, FinalURL: inner.ResolvedURL, Rung: RungResolution, Attempts: attempts, Inner: inner}
	}

	if c.cfg.EnableSearchFallback {
		attempts = append(attempts, "search")
		url := searchEngineURL(c.cfg.SearchEngineURL, query)
		logging.ResolverDebug("fallback: search rung for %q -> %s", query, url)
		if _, err := safety.CheckSafeURL(url); err == nil {
			return FallbackResult{Status: FallbackOK, FinalURL: url, Rung: RungSearch, Attempts: attempts, Inner: inner}
		}
		logging.Resolver("rejecting unsafe search-rung URL %q", url)
	}

	if c.cfg.EnableHomepageFallback {
		attempts = append(attempts, "homepage")
		if homepage, ok := domainHomepage(query); ok {
			if _, err := safety.CheckSafeURL(homepage); err == nil {
				return FallbackResult{Status: FallbackOK, FinalURL: homepage, Rung: RungHomepage, Attempts: attempts, Inner: inner}
			}
			logging.Resolver("rejecting unsafe homepage-rung URL %q", homepage)
		}
	}

	return FallbackResult{Status: FallbackAllFailed, Rung: RungNone, Attempts: attempts, Inner: inner}
}
