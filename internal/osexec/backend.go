// Package osexec implements the platform-native execution backends: launch
// app/URL/file, keystrokes where the platform offers a scripting bridge.
package osexec

import (
	"context"
	"time"

	"handsfree/internal/intent"
	"handsfree/internal/router"
)

// result is a small helper for building router.ExecutionResult consistently
// across backends.
func result(step intent.Step, status string, start time.Time, details map[string]any) router.ExecutionResult {
	return router.ExecutionResult{
		Intent:    string(step.Intent),
		Status:    status,
		Target:    string(targetOrOS(step)),
		Details:   details,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
}

func targetOrOS(step intent.Step) intent.Target {
	if step.Target == "" {
		return intent.TargetOS
	}
	return step.Target
}

// unsupported marks find_ui/invoke_ui/wait_for_window and any intent a
// backend has no native handler for.
func unsupported(step intent.Step, start time.Time) (router.ExecutionResult, error) {
	return result(step, "unsupported", start, map[string]any{"reason": "no native handler for " + string(step.Intent)}), nil
}

// New constructs the OS-native backend for the given platform tag, falling
// back to the generic backend when the tag is unrecognized.
func New(platform string) router.Backend {
	switch platform {
	case "darwin":
		return NewDarwinBackend()
	case "windows":
		return NewWindowsBackend()
	default:
		return NewGenericBackend()
	}
}

// waitForURLPolling implements the generic wait_for_url handler: poll with
// an HTTP GET until a 2xx/3xx is observed or the timeout elapses.
func waitForURLPolling(ctx context.Context, step intent.Step) (router.ExecutionResult, error) {
	start := time.Now()
	timeout := time.Duration(step.TimeoutSecs * float64(time.Second))
	interval := time.Duration(step.IntervalSecs * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(timeout)
	client := pollingHTTPClient()

	for {
		if ok := pollOnce(ctx, client, step.URL); ok {
			return result(step, "ok", start, map[string]any{"url": step.URL}), nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return result(step, "failed", start, map[string]any{"reason": "timeout waiting for url"}), nil
		}
		select {
		case <-ctx.Done():
			return result(step, "failed", start, map[string]any{"reason": ctx.Err().Error()}), nil
		case <-time.After(interval):
		}
	}
}
