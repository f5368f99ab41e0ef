package osexec

// DarwinBackend and WindowsBackend are plain (non build-tagged) files, so
// all three backends compile on every platform. New picks one of them from
// the platform tag it is given at construction (cmd/handsfreed passes
// runtime.GOOS); the choice is not made per inbound event, and events
// carry no client-OS field.

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"handsfree/internal/intent"
	"handsfree/internal/router"
)

// DarwinBackend implements the macOS handlers.
type DarwinBackend struct{}

// NewDarwinBackend constructs the macOS backend.
func NewDarwinBackend() *DarwinBackend { return &DarwinBackend{} }

// ExecuteStep implements router.Backend.
func (b *DarwinBackend) ExecuteStep(ctx context.Context, step intent.Step) (router.ExecutionResult, error) {
	start := time.Now()
	switch step.Intent {
	case intent.OpenURL:
		return b.open(ctx, step, start, step.URL)
	case intent.OpenApp:
		return b.openApp(ctx, step, start)
	case intent.OpenFile:
		return b.open(ctx, step, start, step.Path)
	case intent.WaitForURL:
		return waitForURLPolling(ctx, step)
	case intent.KeyCombo:
		return b.keyCombo(ctx, step, start)
	case intent.TypeText:
		return b.typeText(ctx, step, start)
	case intent.Scroll, intent.MouseMove, intent.Click:
		return unsupported(step, start)
	case intent.FindUI, intent.InvokeUI, intent.WaitForWindow:
		return unsupported(step, start)
	default:
		return unsupported(step, start)
	}
}

// open runs `open -- <target>`, the macOS URL/file launcher, with the
// explicit end-of-options marker so the target can never be read as a flag.
func (b *DarwinBackend) open(ctx context.Context, step intent.Step, start time.Time, target string) (router.ExecutionResult, error) {
	path, err := exec.LookPath("open")
	if err != nil {
		return result(step, "failed", start, map[string]any{"error": "open not found"}), nil
	}
	cmd := exec.CommandContext(ctx, path, "--", target)
	if err := cmd.Run(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, nil), nil
}

func (b *DarwinBackend) openApp(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	path, err := exec.LookPath("open")
	if err != nil {
		return result(step, "failed", start, map[string]any{"error": "open not found"}), nil
	}
	cmd := exec.CommandContext(ctx, path, "-a", "--", step.App)
	if err := cmd.Run(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, nil), nil
}

// keyCombo composes the modifier set and keystroke through the scripting
// bridge (osascript).
func (b *DarwinBackend) keyCombo(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	if len(step.Keys) == 0 {
		return result(step, "failed", start, map[string]any{"error": "no keys"}), nil
	}
	script := buildKeystrokeScript(step.Keys)
	path, err := exec.LookPath("osascript")
	if err != nil {
		return result(step, "failed", start, map[string]any{"error": "osascript not found"}), nil
	}
	cmd := exec.CommandContext(ctx, path, "-e", script)
	if err := cmd.Run(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, map[string]any{"keys": step.Keys}), nil
}

// buildKeystrokeScript renders an AppleScript "System Events" keystroke
// command from a resolved key sequence, treating the last token as the
// keystroke and every earlier token as a held modifier.
func buildKeystrokeScript(keys []string) string {
	if len(keys) == 1 {
		return fmt.Sprintf(`tell application "System Events" to keystroke %q`, keys[0])
	}
	key := keys[len(keys)-1]
	mods := keys[:len(keys)-1]
	using := make([]string, 0, len(mods))
	for _, m := range mods {
		using = append(using, m+" down")
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke %q using {%s}`, key, strings.Join(using, ", "))
}

func (b *DarwinBackend) typeText(ctx context.Context, step intent.Step, start time.Time) (router.ExecutionResult, error) {
	path, err := exec.LookPath("osascript")
	if err != nil {
		return result(step, "failed", start, map[string]any{"error": "osascript not found"}), nil
	}
	script := fmt.Sprintf(`tell application "System Events" to keystroke %q`, step.Text)
	cmd := exec.CommandContext(ctx, path, "-e", script)
	if err := cmd.Run(); err != nil {
		return result(step, "failed", start, map[string]any{"error": err.Error()}), nil
	}
	return result(step, "ok", start, map[string]any{"text_len": len(step.Text)}), nil
}

