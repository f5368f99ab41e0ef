// Package webexec implements the persistent web executor: a single
// long-lived browser context reused across calls, with deferred-open
// chaining and a site-specific messaging adapter.
package webexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"handsfree/internal/intent"
	"handsfree/internal/logging"
	"handsfree/internal/resolve"
	"handsfree/internal/router"
	"handsfree/internal/safety"
)

// Structured web error codes.
const (
	CodeUnsafeURL         = "WEB_UNSAFE_URL"
	CodeOpenTimeout       = "WEB_OPEN_TIMEOUT"
	CodeOpenFailed        = "WEB_OPEN_FAILED"
	CodeResolutionFailed  = "WEB_RESOLUTION_FAILED"
	CodePlaywrightMissing = "WEB_PLAYWRIGHT_MISSING"
	CodeFormFieldNotFound = "WEB_FORM_FIELD_NOT_FOUND"
	CodeFormSubmitFailed  = "WEB_FORM_SUBMIT_FAILED"
	CodeUnexpected        = "WEB_UNEXPECTED"
)

// WebExecutionError is the structured error the executor raises on any
// unexpected failure.
type WebExecutionError struct {
	Code           string
	Message        string
	ScreenshotPath string
}

func (e *WebExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// asWebError normalizes any failure into a WebExecutionError, preserving an
// already-tagged code and otherwise tagging it WEB_UNEXPECTED.
func asWebError(err error) *WebExecutionError {
	var wErr *WebExecutionError
	if errors.As(err, &wErr) {
		return wErr
	}
	return &WebExecutionError{Code: CodeUnexpected, Message: err.Error()}
}

// Config configures the persistent web executor.
type Config struct {
	Headless          bool
	ProfileDir        string
	NavigationTimeout time.Duration
	SearchEngineURL   string
	ScreenshotDir     string
	EnableFormFilling bool
}

// Executor holds a single persistent browser context with one page reused
// across calls. It is lazily initialized on first web step and records the
// worker affinity marker (see SetThreadAffinity) current at initialization,
// re-initializing when a later call sees a different marker.
type Executor struct {
	cfg     Config
	chain   *resolve.Chain

	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	missing bool // permanent degraded fallback: underlying runtime unavailable

	initOSThread int64 // os thread id captured at init, for affinity checks

	// Deferred-open / pending-search state.
	deferredURL   string
	deferredBase  string
	pendingSearch string
	deferActive   bool

	adapter *MessagingAdapter

	// openSystem hands a URL to the user's default browser; a field so
	// tests can intercept the shell-out.
	openSystem func(ctx context.Context, target string) error
}

// NewExecutor constructs a persistent web executor. The underlying browser
// is not launched until the first web step is dispatched.
func NewExecutor(cfg Config, chain *resolve.Chain) *Executor {
	return &Executor{cfg: cfg, chain: chain, adapter: NewMessagingAdapter(), openSystem: openInSystemBrowser}
}

// Close tears down the persistent browser. Idempotent.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked()
}

func (e *Executor) closeLocked() error {
	if e.page != nil {
		_ = e.page.Close()
		e.page = nil
	}
	if e.browser != nil {
		err := e.browser.Close()
		e.browser = nil
		return err
	}
	return nil
}

// ensureBrowserLocked lazily launches the browser, or re-initializes it if
// the affinity marker has changed since launch (a new controller worker has
// called SetThreadAffinity).
func (e *Executor) ensureBrowserLocked() error {
	currentThread := lockedOSThreadID()
	if e.browser != nil {
		if e.initOSThread != 0 && currentThread != 0 && e.initOSThread != currentThread {
			logging.Web("web executor re-entered from a different thread, re-initializing")
			_ = e.closeLocked()
		} else {
			return nil
		}
	}

	l := launcher.New().Headless(e.cfg.Headless)
	if e.cfg.ProfileDir != "" {
		l = l.UserDataDir(e.cfg.ProfileDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		e.missing = true
		return fmt.Errorf("launch web executor browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		e.missing = true
		return fmt.Errorf("connect web executor browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		e.missing = true
		return fmt.Errorf("open web executor page: %w", err)
	}
	e.browser = browser
	e.page = page
	e.missing = false
	e.initOSThread = currentThread
	return nil
}

// lockedOSThreadID is a coarse stand-in for a real OS thread id: Go doesn't
// expose one, so this executor's affinity check reads a single process-wide
// marker set by the controller's worker (see controller.worker), which is 0
// (affinity check disabled) until one is set.
func lockedOSThreadID() int64 {
	return currentGoroutineAffinity
}

// currentGoroutineAffinity is set by the controller's worker via
// SetThreadAffinity once it calls runtime.LockOSThread. It is one package
// variable, not per goroutine: every caller reads the same value, so a call
// from another goroutine is not told apart; a change of worker is.
var currentGoroutineAffinity int64

// SetThreadAffinity records the worker's declared identity in the
// process-wide marker. The controller's worker goroutine calls this once
// after runtime.LockOSThread; a new worker therefore makes the executor
// re-initialize its browser on its next call.
func SetThreadAffinity(id int64) { currentGoroutineAffinity = id }

// ExecuteStep implements router.Backend for web-targeted steps.
func (e *Executor) ExecuteStep(ctx context.Context, step intent.Step) (router.ExecutionResult, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	// Once the runtime has been found missing it stays missing for the
	// process lifetime.
	if e.missing {
		return e.degradedStep(ctx, step, start)
	}
	if err := e.ensureBrowserLocked(); err != nil {
		logging.Web("degrading web executor permanently (browser runtime unavailable): %v", err)
		return e.degradedStep(ctx, step, start)
	}

	var res router.ExecutionResult
	var execErr error
	switch step.Intent {
	case intent.OpenURL, intent.OpenFile:
		res, execErr = e.openURL(ctx, step, start)
	case intent.TypeText:
		res, execErr = e.typeText(ctx, step, start)
	case intent.KeyCombo:
		res, execErr = e.keyCombo(ctx, step, start)
	case intent.Click:
		res, execErr = e.click(ctx, step, start)
	case intent.Scroll:
		res, execErr = e.scroll(ctx, step, start)
	case intent.WebSendMessage:
		res, execErr = e.sendMessage(ctx, step, start)
	case intent.WebFillForm:
		res, execErr = e.fillForm(ctx, step, start)
	case intent.WebRequestPerm:
		res = e.result(step, "ok", start, map[string]any{"note": "permission request recorded, not enforced"})
	default:
		res = e.result(step, "unsupported", start, map[string]any{"reason": "no web handler for " + string(step.Intent)})
	}

	if execErr != nil {
		wErr := asWebError(execErr)
		if wErr.ScreenshotPath == "" {
			wErr.ScreenshotPath = e.captureScreenshot(step)
		}
		logging.Web("step %s failed: %v (screenshot: %s)", step.Intent, wErr, wErr.ScreenshotPath)
		return e.result(step, "failed", start, map[string]any{
			"code":            wErr.Code,
			"error":           wErr.Message,
			"screenshot_path": wErr.ScreenshotPath,
		}), wErr
	}
	return res, nil
}

// degradedStep replicates the online behavior as closely as possible
// without a controlled browser: open_url still reaches the
// system browser, a deferred open remembers its base, type_text remembers
// the pending query, an enter key_combo synthesizes a templated search URL
// from base+query, and every other web intent fails with
// WEB_PLAYWRIGHT_MISSING.
func (e *Executor) degradedStep(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	switch step.Intent {
	case intent.OpenURL, intent.OpenFile:
		return e.degradedOpenURL(ctx, step, start)
	case intent.TypeText:
		if e.deferActive {
			e.pendingSearch = step.Text
			return e.result(step, "ok", start, map[string]any{"degraded": true, "pending_search": true}), nil
		}
	case intent.KeyCombo:
		if containsEnter(step.Keys) && e.deferActive {
			target := e.deferredBase
			if e.pendingSearch != "" {
				target = originOf(e.deferredBase) + "/search?q=" + urlEscape(e.pendingSearch)
			}
			e.deferActive = false
			e.pendingSearch = ""
			e.deferredURL = ""
			e.deferredBase = ""
			if err := e.openSystem(ctx, target); err != nil {
				wErr := &WebExecutionError{Code: CodeOpenFailed, Message: err.Error()}
				return e.result(step, "failed", start, map[string]any{"degraded": true, "code": wErr.Code, "error": wErr.Message}), wErr
			}
			return e.result(step, "ok", start, map[string]any{"degraded": true, "flushed_url": target}), nil
		}
	}
	wErr := &WebExecutionError{Code: CodePlaywrightMissing, Message: "browser runtime is not installed"}
	return e.result(step, "failed", start, map[string]any{"degraded": true, "code": wErr.Code, "error": wErr.Message}), wErr
}

func (e *Executor) degradedOpenURL(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	target := step.ResolvedURL
	if target == "" && e.chain != nil {
		fb := e.chain.Resolve(ctx, step.URL)
		target = fb.FinalURL
	}
	if target == "" {
		wErr := &WebExecutionError{Code: CodeResolutionFailed, Message: fmt.Sprintf("no url obtainable for %q without a browser runtime", step.URL)}
		return e.result(step, "failed", start, map[string]any{"degraded": true, "code": wErr.Code, "error": wErr.Message}), wErr
	}
	if _, err := safety.CheckSafeURL(target); err != nil {
		wErr := &WebExecutionError{Code: CodeUnsafeURL, Message: fmt.Sprintf("resolved url %q: %v", target, err)}
		return e.result(step, "failed", start, map[string]any{"degraded": true, "code": wErr.Code, "error": wErr.Message}), wErr
	}
	if step.DeferOpen && step.ResolvedURL == "" {
		e.deferActive = true
		e.deferredURL = target
		e.deferredBase = target
		return e.result(step, "ok", start, map[string]any{"degraded": true, "defer_open": true, "base": target}), nil
	}
	if err := e.openSystem(ctx, target); err != nil {
		wErr := &WebExecutionError{Code: CodeOpenFailed, Message: err.Error()}
		return e.result(step, "failed", start, map[string]any{"degraded": true, "code": wErr.Code, "error": wErr.Message}), wErr
	}
	return e.result(step, "ok", start, map[string]any{"degraded": true, "via": "system_browser"}), nil
}

func (e *Executor) result(step intent.Step, status string, start time.Time, details map[string]any) router.ExecutionResult {
	return router.ExecutionResult{
		Intent:    string(step.Intent),
		Status:    status,
		Target:    string(intent.TargetWeb),
		Details:   details,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
}

// openURL resolves the step's target and hands it to the right browser.
func (e *Executor) openURL(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if step.ResolvedURL != "" {
		// A precomputed resolved_url short-circuits the chain entirely,
		// even if a later step would otherwise chain.
		if _, err := safety.CheckSafeURL(step.ResolvedURL); err != nil {
			return router.ExecutionResult{}, &WebExecutionError{Code: CodeUnsafeURL, Message: fmt.Sprintf("resolved url %q: %v", step.ResolvedURL, err)}
		}
		if err := e.openSystem(ctx, step.ResolvedURL); err != nil {
			return router.ExecutionResult{}, &WebExecutionError{Code: CodeOpenFailed, Message: err.Error()}
		}
		return e.result(step, "ok", start, map[string]any{"resolved_url": step.ResolvedURL, "via": "precomputed"}), nil
	}

	fb := e.chain.Resolve(ctx, step.URL)
	if fb.FinalURL == "" {
		return router.ExecutionResult{}, &WebExecutionError{Code: CodeResolutionFailed, Message: fmt.Sprintf("fallback chain exhausted for %q (rung=%s)", step.URL, fb.Rung)}
	}
	parsed, err := safety.CheckSafeURL(fb.FinalURL)
	if err != nil {
		return router.ExecutionResult{}, &WebExecutionError{Code: CodeUnsafeURL, Message: fmt.Sprintf("resolved url %q: %v", fb.FinalURL, err)}
	}

	res := router.ExecutionResult{
		Intent:         string(step.Intent),
		Status:         "ok",
		Target:         string(intent.TargetWeb),
		ResolvedURL:    parsed.String(),
		FallbackUsed:   string(fb.Rung),
		ElapsedMs:      time.Since(start).Milliseconds(),
		DOMSearchQuery: step.URL,
	}

	if step.DeferOpen {
		navStart := time.Now()
		if err := e.page.Navigate(parsed.String()); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return router.ExecutionResult{}, &WebExecutionError{Code: CodeOpenTimeout, Message: fmt.Sprintf("navigate %q: %v", parsed, err)}
			}
			return router.ExecutionResult{}, &WebExecutionError{Code: CodeOpenFailed, Message: fmt.Sprintf("navigate %q: %v", parsed, err)}
		}
		_ = e.page.WaitLoad()
		res.NavigationTimeMs = time.Since(navStart).Milliseconds()
		e.deferActive = true
		e.deferredURL = parsed.String()
		e.deferredBase = parsed.String()
		res.Details = map[string]any{"defer_open": true}
		return res, nil
	}

	if err := e.openSystem(ctx, parsed.String()); err != nil {
		return router.ExecutionResult{}, &WebExecutionError{Code: CodeOpenFailed, Message: err.Error()}
	}
	return res, nil
}

// typeText locates a text input: an explicit selector with
// ranked fallbacks, finally raw keyboard typing at the focused element.
func (e *Executor) typeText(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	searchSelectors := []string{
		`input[type=search]`,
		`input[name*="search"]`,
		`input[name="q"]`,
		`input[aria-label*="search"]`,
	}

	var el *rod.Element
	if sel, ok := step.Selector["css"].(string); ok && sel != "" {
		if found, err := e.page.Timeout(2 * time.Second).Element(sel); err == nil {
			el = found
		}
	}
	if el == nil {
		for _, sel := range searchSelectors {
			if found, err := e.page.Timeout(500 * time.Millisecond).Element(sel); err == nil {
				el = found
				break
			}
		}
	}

	if el != nil {
		if err := el.Input(step.Text); err != nil {
			return router.ExecutionResult{}, fmt.Errorf("type into element: %w", err)
		}
	} else {
		if err := e.page.InsertText(step.Text); err != nil {
			return router.ExecutionResult{}, fmt.Errorf("type at focused element: %w", err)
		}
	}

	e.pendingSearch = step.Text
	return e.result(step, "ok", start, map[string]any{"text_len": len(step.Text)}), nil
}

// keyCombo presses the combo on the page keyboard, including the
// enter-with-deferred-open chain flush.
func (e *Executor) keyCombo(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if err := pressKeys(e.page, step.Keys); err != nil {
		return router.ExecutionResult{}, fmt.Errorf("press keys: %w", err)
	}

	if !containsEnter(step.Keys) || !e.deferActive {
		return e.result(step, "ok", start, map[string]any{"keys": step.Keys}), nil
	}

	_ = e.page.Timeout(3 * time.Second).WaitIdle(3 * time.Second)
	info, err := e.page.Info()
	finalURL := e.deferredURL
	if err == nil && info.URL != "" && info.URL != e.deferredURL {
		finalURL = info.URL
	} else if e.pendingSearch != "" {
		if landed, ok := e.trySearchLadder(e.deferredBase, e.pendingSearch); ok {
			finalURL = landed
		}
	}

	e.deferActive = false
	e.pendingSearch = ""
	if err := e.openSystem(ctx, finalURL); err != nil {
		return router.ExecutionResult{}, &WebExecutionError{Code: CodeOpenFailed, Message: err.Error()}
	}
	return e.result(step, "ok", start, map[string]any{"keys": step.Keys, "flushed_url": finalURL}), nil
}

// trySearchLadder implements the templated search-URL ladder named in
// keyCombo's deferred-open flush.
func (e *Executor) trySearchLadder(base, query string) (string, bool) {
	templates := []string{"/search?q=%s", "/search?query=%s", "/results?search_query=%s", "/?q=%s"}
	origin := originOf(base)
	for _, tmpl := range templates {
		candidate := origin + fmt.Sprintf(tmpl, urlEscape(query))
		navPage := e.page.Timeout(3 * time.Second)
		if err := navPage.Navigate(candidate); err == nil {
			if err := navPage.WaitLoad(); err == nil {
				return candidate, true
			}
		}
	}
	return "", false
}

// originOf strips any path/query from a URL, leaving scheme://host.
func originOf(base string) string {
	origin := strings.TrimSuffix(base, "/")
	if idx := strings.Index(origin, "://"); idx >= 0 {
		if slash := strings.Index(origin[idx+3:], "/"); slash >= 0 {
			origin = origin[:idx+3+slash]
		}
	}
	return origin
}

func urlEscape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, " ", "+"), "\n", "")
}

func containsEnter(keys []string) bool {
	for _, k := range keys {
		if k == "enter" || k == "return" {
			return true
		}
	}
	return false
}

// click tries a selector, then coordinates,
// then a (0,0) noop-ish default.
func (e *Executor) click(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if sel, ok := step.Selector["css"].(string); ok && sel != "" {
		if el, err := e.page.Timeout(2 * time.Second).Element(sel); err == nil {
			if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
				return e.result(step, "ok", start, map[string]any{"via": "selector"}), nil
			}
		}
	}
	x, y := step.X, step.Y
	if err := e.page.Mouse.MoveTo(proto.Point{X: float64(x), Y: float64(y)}); err != nil {
		return router.ExecutionResult{}, fmt.Errorf("move mouse: %w", err)
	}
	if err := e.page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return router.ExecutionResult{}, fmt.Errorf("click: %w", err)
	}
	return e.result(step, "ok", start, map[string]any{"via": "coordinates", "x": x, "y": y}), nil
}

// scroll wheels by amount*100 pixels.
func (e *Executor) scroll(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	dy := float64(step.Amount * 100)
	if step.Direction == "up" {
		dy = -dy
	}
	if err := e.page.Mouse.Scroll(0, dy, 1); err != nil {
		return router.ExecutionResult{}, fmt.Errorf("scroll: %w", err)
	}
	return e.result(step, "ok", start, map[string]any{"direction": step.Direction, "pixels": dy}), nil
}

// fillForm implements the config-gated web_fill_form handler: fill each
// selector->value pair, optionally submit.
func (e *Executor) fillForm(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if !e.cfg.EnableFormFilling {
		return e.result(step, "unsupported", start, map[string]any{"reason": "form filling disabled by config"}), nil
	}
	filled := 0
	for sel, val := range step.Selector {
		strVal, ok := val.(string)
		if !ok {
			continue
		}
		el, err := e.page.Timeout(2 * time.Second).Element(sel)
		if err != nil {
			return router.ExecutionResult{}, &WebExecutionError{Code: CodeFormFieldNotFound, Message: fmt.Sprintf("no element for selector %q", sel)}
		}
		if err := el.Input(strVal); err != nil {
			return router.ExecutionResult{}, &WebExecutionError{Code: CodeFormFieldNotFound, Message: fmt.Sprintf("fill %q: %v", sel, err)}
		}
		filled++
	}
	if submit, _ := step.Fields["submit"].(bool); submit {
		if err := e.page.Keyboard.Type(keyInputMap["enter"]); err != nil {
			return router.ExecutionResult{}, &WebExecutionError{Code: CodeFormSubmitFailed, Message: fmt.Sprintf("submit: %v", err)}
		}
	}
	return e.result(step, "ok", start, map[string]any{"fields_filled": filled}), nil
}

// sendMessage delegates to the messaging adapter.
func (e *Executor) sendMessage(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if err := e.adapter.Send(ctx, e.page, step.Contact, step.Message); err != nil {
		return router.ExecutionResult{}, err
	}
	return e.result(step, "ok", start, map[string]any{"contact": step.Contact}), nil
}

// FlushDeferredOpen implements router.WebBackend: commit any still-held
// navigation by opening the current page URL in the system browser.
func (e *Executor) FlushDeferredOpen(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.deferActive {
		return nil
	}
	finalURL := e.deferredURL
	if e.page != nil {
		if info, err := e.page.Info(); err == nil && info.URL != "" {
			finalURL = info.URL
		}
	}
	e.deferActive = false
	e.pendingSearch = ""
	e.deferredURL = ""
	e.deferredBase = ""
	return e.openSystem(ctx, finalURL)
}

func pressKeys(page *rod.Page, keys []string) error {
	for _, k := range keys {
		key, ok := keyInputMap[k]
		if !ok {
			continue
		}
		if err := page.Keyboard.Type(key); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) captureScreenshot(step intent.Step) string {
	if e.page == nil {
		return ""
	}
	dir := e.cfg.ScreenshotDir
	if dir == "" {
		dir = filepath.Join("user_data", "error_screenshots")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", step.Intent, time.Now().Unix()))
	data, err := e.page.Screenshot(false, nil)
	if err != nil {
		return ""
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ""
	}
	return path
}

// openInSystemBrowser hands a URL off to the user's default browser, out of
// process.
func openInSystemBrowser(ctx context.Context, target string) error {
	if _, err := safety.CheckSafeURL(target); err != nil {
		return fmt.Errorf("refusing to open unsafe url: %w", err)
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "--", target)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/C", "start", "", "--", target)
	default:
		if path, err := exec.LookPath("xdg-open"); err == nil {
			cmd = exec.CommandContext(ctx, path, "--", target)
		} else {
			return fmt.Errorf("no system browser launcher available")
		}
	}
	return cmd.Run()
}
