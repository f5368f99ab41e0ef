package resolve

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"handsfree/internal/logging"
	"handsfree/internal/safety"
)

// ResolverConfig configures the headless resolver browser.
type ResolverConfig struct {
	Headless          bool
	ProfileDir        string
	NavigationTimeout time.Duration
	SearchEngineURL   string
}

// Resolver is a headless browser, separate profile, single reused page,
// guarded by a mutex so only one resolution runs at a time.
type Resolver struct {
	cfg   ResolverConfig
	cache *Cache

	mu      sync.Mutex // serializes resolve() calls
	browser *rod.Browser
	page    *rod.Page
}

// NewResolver constructs a resolver with its own cache. The underlying
// browser is lazily launched on first Resolve call.
func NewResolver(cfg ResolverConfig, cache *Cache) *Resolver {
	return &Resolver{cfg: cfg, cache: cache}
}

// Close tears down the resolver's browser. Idempotent.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.page != nil {
		_ = r.page.Close()
		r.page = nil
	}
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

func (r *Resolver) ensureBrowserLocked() error {
	if r.browser != nil {
		return nil
	}
	l := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.ProfileDir != "" {
		l = l.UserDataDir(r.cfg.ProfileDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch resolver browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect resolver browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("open resolver page: %w", err)
	}
	r.browser = browser
	r.page = page
	return nil
}

// Resolve maps an ambiguous web-target to a concrete URL.
func (r *Resolver) Resolve(ctx context.Context, query string) Result {
	if cached, ok := r.cache.Get(query); ok {
		logging.ResolverDebug("cache hit for %q", query)
		return cached
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := r.resolveLocked(ctx, query)
	result.ElapsedMs = time.Since(start).Milliseconds()
	result.FromCache = false

	r.cache.Put(query, result)
	return result
}

func (r *Resolver) resolveLocked(ctx context.Context, query string) Result {
	result := r.resolveLockedUnchecked(ctx, query)
	return checkResultSafety(result)
}

// checkResultSafety applies the URL safety predicate to a
// resolved URL before it can leave this package, downgrading an unsafe
// result to StatusFailed rather than handing a dangerous URL onward.
func checkResultSafety(result Result) Result {
	if result.Status != StatusOK || result.ResolvedURL == "" {
		return result
	}
	if _, err := safety.CheckSafeURL(result.ResolvedURL); err != nil {
		logging.Resolver("rejecting unsafe resolved URL %q: %v", result.ResolvedURL, err)
		return Result{Status: StatusFailed, Error: fmt.Sprintf("unsafe resolved url: %v", err), CandidatesFound: result.CandidatesFound}
	}
	return result
}

func (r *Resolver) resolveLockedUnchecked(ctx context.Context, query string) Result {
	if err := r.ensureBrowserLocked(); err != nil {
		return Result{Status: StatusFailed, Error: err.Error()}
	}

	navTimeout := r.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 15 * time.Second
	}

	initialURL := inferInitialURL(query, r.cfg.SearchEngineURL)

	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	page := r.page.Context(navCtx)
	if err := page.Navigate(initialURL); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return Result{Status: StatusTimeout, Error: "navigation timed out"}
		}
		return Result{Status: StatusFailed, Error: fmt.Sprintf("navigate: %v", err)}
	}
	if err := page.WaitLoad(); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return Result{Status: StatusTimeout, Error: "wait for dom content loaded timed out"}
		}
	}
	_ = page.WaitIdle(navTimeout)

	if isLoginIntent(query) {
		if res, ok := r.findLoginCandidate(page); ok {
			return res
		}
		if res, ok := r.networkProbeLogin(page); ok {
			return res
		}
		// Fall through to general DOM search.
	}

	return r.domSearch(page, query)
}

type candidate struct {
	href  string
	text  string
	aria  string
	score float64
}

// findLoginCandidate scans for link candidates whose text/aria/href hint at
// a login surface, ranked by prominence x position.
func (r *Resolver) findLoginCandidate(page *rod.Page) (Result, bool) {
	loginTerms := []string{"signin", "sign-in", "sign in", "login", "log-in", "log in", "account", "ap/signin"}

	els, err := page.Elements("a")
	if err != nil {
		return Result{}, false
	}

	var best *candidate
	n := len(els)
	for i, el := range els {
		if i >= 100 {
			break
		}
		href := attrOf(el, "href")
		if href == "" || strings.HasPrefix(href, "#") || href == "javascript:void(0)" {
			continue
		}
		text := textOf(el)
		aria := attrOf(el, "aria-label")
		hay := strings.ToLower(text + " " + aria + " " + href)

		matched := false
		for _, term := range loginTerms {
			if strings.Contains(hay, term) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		score := positionScore(i, n)
		if strings.Contains(strings.ToLower(text), "sign in") || strings.Contains(strings.ToLower(text), "login") {
			score += 10
		}
		if best == nil || score > best.score {
			best = &candidate{href: href, text: text, aria: aria, score: score}
		}
	}

	if best == nil {
		return Result{}, false
	}
	resolved := resolveAbsolute(page, best.href)
	return Result{Status: StatusOK, ResolvedURL: resolved, CandidatesFound: 1, SelectedReason: "login_candidate"}, true
}

// networkProbeLogin is the fallback when no link candidate is found: it
// clicks the first of the page's first 30 anchors/buttons whose text reads
// "sign in", "log in" or "login" and returns the URL the page lands on.
//
// No network requests are observed (no proto.NetworkRequestWillBeSent
// listener is installed) and no hover heuristic is run; the landing URL
// after the click stands in for an observed login request.
func (r *Resolver) networkProbeLogin(page *rod.Page) (Result, bool) {
	els, err := page.Elements("a, button")
	if err != nil {
		return Result{}, false
	}
	for i, el := range els {
		if i >= 30 {
			break
		}
		text := strings.ToLower(textOf(el))
		if strings.Contains(text, "sign in") || strings.Contains(text, "log in") || strings.Contains(text, "login") {
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				continue
			}
			_ = page.WaitIdle(3 * time.Second)
			info, err := page.Info()
			if err != nil {
				continue
			}
			return Result{Status: StatusOK, ResolvedURL: info.URL, CandidatesFound: 1, SelectedReason: "network_probe"}, true
		}
	}
	return Result{}, false
}

// domSearch scans the first anchors on the page for the best query match.
func (r *Resolver) domSearch(page *rod.Page, query string) Result {
	els, err := page.Elements("a")
	if err != nil {
		return Result{Status: StatusFailed, Error: fmt.Sprintf("scan anchors: %v", err)}
	}

	terms := strings.Fields(strings.ToLower(query))
	var candidates []candidate
	n := len(els)
	if n > 100 {
		n = 100
	}

	for i := 0; i < n; i++ {
		el := els[i]
		href := attrOf(el, "href")
		if href == "" || strings.HasPrefix(href, "#") || href == "javascript:void(0)" {
			continue
		}
		text := strings.ToLower(textOf(el))
		aria := strings.ToLower(attrOf(el, "aria-label"))

		exactMatch := text == strings.ToLower(query)
		ariaMatch := strings.Contains(aria, strings.ToLower(query))
		termMatches := 0
		for _, term := range terms {
			if strings.Contains(text, term) || strings.Contains(aria, term) {
				termMatches++
			}
		}
		if !exactMatch && !ariaMatch && termMatches == 0 {
			continue
		}

		score := positionScore(i, n)
		if exactMatch {
			score += 10
		}
		if ariaMatch {
			score += 5
		}
		score += float64(termMatches) * 2

		candidates = append(candidates, candidate{href: href, text: text, aria: aria, score: score})
		if len(candidates) >= 20 {
			break
		}
	}

	if len(candidates) == 0 {
		return Result{Status: StatusFailed, CandidatesFound: 0, Error: "no matching links found"}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	best := candidates[0]
	resolved := resolveAbsolute(page, best.href)
	return Result{
		Status:          StatusOK,
		ResolvedURL:     resolved,
		CandidatesFound: len(candidates),
		SelectedReason:  "text_match",
	}
}

// positionScore rewards links appearing earlier in the document:
// max(0.1, 1 - i/N).
func positionScore(i, n int) float64 {
	if n <= 0 {
		return 0.1
	}
	score := 1 - float64(i)/float64(n)
	return math.Max(0.1, score)
}

func textOf(el *rod.Element) string {
	t, err := el.Text()
	if err != nil {
		return ""
	}
	return t
}

func attrOf(el *rod.Element, name string) string {
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

// resolveAbsolute resolves href against the page's current URL in-process
// using net/url joining, never by evaluating page script.
func resolveAbsolute(page *rod.Page, href string) string {
	info, err := page.Info()
	if err != nil {
		return href
	}
	base, err := url.Parse(info.URL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
