package osexec

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"handsfree/internal/intent"
	"handsfree/internal/resolve"
	"handsfree/internal/router"
)

// WindowsBackend implements the Windows handlers.
type WindowsBackend struct {
	// startMenuCatalog is probed by openApp before falling back to the
	// name-to-URL heuristic. Nothing in this package fills it, so it stays
	// nil and every open_app takes the name-to-URL path.
	startMenuCatalog map[string]string
}

// NewWindowsBackend constructs the Windows backend.
func NewWindowsBackend() *WindowsBackend { return &WindowsBackend{} }

// ExecuteStep implements router.Backend.
func (b *WindowsBackend) ExecuteStep(ctx context.Context, step intent.Step) (router.ExecutionResult, error) {
	start := time.Now()
	switch step.Intent {
	case intent.OpenURL:
		return b.shellExecute(ctx, step, start, step.URL)
	case intent.OpenApp:
		return b.openApp(ctx, step, start)
	case intent.OpenFile:
		return b.shellExecute(ctx, step, start, step.Path)
	case intent.WaitForURL:
		return waitForURLPolling(ctx, step)
	case intent.KeyCombo, intent.TypeText, intent.Scroll, intent.MouseMove, intent.Click:
		return unsupported(step, start)
	case intent.FindUI, intent.InvokeUI, intent.WaitForWindow:
		return unsupported(step, start)
	default:
		return unsupported(step, start)
	}
}

// shellExecute runs `cmd /C start "" -- <target>`: shell-execute via start,
// with an explicit "--" terminator so a target beginning with "-" can never
// be read as a start.exe flag.
func (b *WindowsBackend) shellExecute(ctx context.Context, step intent.Step, start time.Time, target string) (router.ExecutionResult, error) {
	cmd := exec.CommandContext(ctx, "cmd", "/C", "start", "", "--", target)
	if err := cmd.Run(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, nil), nil
}

// openApp first probes the start-menu catalog; if absent, falls back to the
// name-to-URL heuristic.
func (b *WindowsBackend) openApp(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if target, ok := b.lookupStartMenu(step.App); ok {
		cmd := exec.CommandContext(ctx, "cmd", "/C", "start", "", "--", target)
		if err := cmd.Run(); err != nil {
			return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
		}
		return result(step, "ok", start, map[string]any{"via": "start_menu"}), nil
	}
	domain := resolve.DomainForApp(step.App)
	if domain == "" {
		return result(step, "failed", start, map[string]any{"error": fmt.Sprintf("%q not in start menu and no web equivalent", step.App)}), nil
	}
	url := "https://" + domain
	cmd := exec.CommandContext(ctx, "cmd", "/C", "start", "", "--", url)
	if err := cmd.Run(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, map[string]any{"via": "name_to_url", "url": url}), nil
}

// lookupStartMenu is a thin probe over the startMenuCatalog name->path map.
// The Start Menu shortcut folders are not enumerated, so with the catalog
// nil it always reports a miss.
func (b *WindowsBackend) lookupStartMenu(app string) (string, bool) {
	if b.startMenuCatalog == nil {
		return "", false
	}
	v, ok := b.startMenuCatalog[strings.ToLower(app)]
	return v, ok
}
