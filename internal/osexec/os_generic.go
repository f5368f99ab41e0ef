package osexec

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"handsfree/internal/intent"
	"handsfree/internal/router"
)

// GenericBackend is the fallback backend used on platforms other than
// macOS/Windows, and as the backend a native one re-dispatches to when it
// reports "unsupported". It covers launching (xdg-open, browser lookup)
// and URL polling; keyboard/pointer synthesis has no library wired here
// and reports "unsupported".
type GenericBackend struct{}

// NewGenericBackend constructs the generic fallback backend.
func NewGenericBackend() *GenericBackend { return &GenericBackend{} }

// ExecuteStep implements router.Backend.
func (b *GenericBackend) ExecuteStep(ctx context.Context, step intent.Step) (router.ExecutionResult, error) {
	start := time.Now()
	switch step.Intent {
	case intent.OpenURL:
		return b.openURL(ctx, step, start)
	case intent.OpenApp:
		return b.openApp(ctx, step, start)
	case intent.OpenFile:
		return b.openPath(ctx, step, start)
	case intent.WaitForURL:
		return waitForURLPolling(ctx, step)
	case intent.KeyCombo, intent.TypeText, intent.Scroll, intent.MouseMove, intent.Click:
		// No synthetic-input library is wired on this platform; an honest
		// "unsupported" beats a fabricated success.
		return unsupported(step, start)
	case intent.FindUI, intent.InvokeUI, intent.WaitForWindow:
		return unsupported(step, start)
	default:
		return unsupported(step, start)
	}
}

// openURL tries xdg-open first, then falls back to a generic
// open-in-browser routine.
func (b *GenericBackend) openURL(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if path, err := exec.LookPath("xdg-open"); err == nil {
		// Explicit "--" terminator so a URL beginning with "-" is never
		// parsed as a flag.
		cmd := exec.CommandContext(ctx, path, "--", step.URL)
		if err := cmd.Run(); err == nil {
			return result(step, "ok", start, map[string]any{"via": "xdg-open"}), nil
		}
	}
	if err := openBrowserFallback(ctx, step.URL); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, map[string]any{"via": "generic-browser-open"}), nil
}

func (b *GenericBackend) openApp(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	path, err := exec.LookPath(step.App)
	if err != nil {
		return result(step, "failed", start, map[string]any{"error": fmt.Sprintf("app %q not found in PATH", step.App)}), nil
	}
	cmd := exec.CommandContext(ctx, path, "--")
	if err := cmd.Start(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, nil), nil
}

func (b *GenericBackend) openPath(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if path, err := exec.LookPath("xdg-open"); err == nil {
		cmd := exec.CommandContext(ctx, path, "--", step.Path)
		if err := cmd.Run(); err != nil {
			return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
		}
		return result(step, "ok", start, nil), nil
	}
	return result(step, "failed", start, map[string]any{"error": "no xdg-open available"}), nil
}

func openBrowserFallback(ctx context.Context, url string) error {
	for _, candidate := range []string{"x-www-browser", "sensible-browser", "firefox", "chromium"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return exec.CommandContext(ctx, path, "--", url).Start()
		}
	}
	return fmt.Errorf("no browser launcher found in PATH")
}
