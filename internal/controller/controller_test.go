package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"handsfree/internal/confirm"
	"handsfree/internal/engine"
	"handsfree/internal/intent"
	"handsfree/internal/router"
)

type stubInterpreter struct {
	payload any
	calls   int
}

func (s *stubInterpreter) Interpret(ctx context.Context, text string, uiContext map[string]any, allowed []string) (any, error) {
	s.calls++
	return s.payload, nil
}

type stubBackend struct{ delay time.Duration }

func (b *stubBackend) ExecuteStep(ctx context.Context, step intent.Step) (router.ExecutionResult, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
		}
	}
	return router.ExecutionResult{Intent: string(step.Intent), Status: "ok"}, nil
}

type stubWebBackend struct{ stubBackend }

func (b *stubWebBackend) FlushDeferredOpen(ctx context.Context) error { return nil }

type stubGestures struct {
	m map[string]struct {
		text  string
		steps []map[string]any
	}
}

func (g *stubGestures) Lookup(label string) (string, []map[string]any, bool) {
	v, ok := g.m[label]
	if !ok {
		return "", nil, false
	}
	return v.text, v.steps, true
}

func newTestController(t *testing.T, delay time.Duration, timeout time.Duration) (*Controller, *engine.Engine) {
	interp := &stubInterpreter{payload: []any{map[string]any{"intent": "open_app", "app": "Notes"}}}
	rtr := router.New(&stubBackend{delay: delay}, nil, &stubWebBackend{})
	eng := engine.New(interp, confirm.New(), rtr, `\b(delete|remove)\b`, nil)
	ctrl := New(eng, nil, nil, Config{QueueCapacity: 4, CommandTimeout: timeout})
	return ctrl, eng
}

func TestHandleEvent_DropsOnFullQueue(t *testing.T) {
	ctrl, _ := newTestController(t, 0, 0)
	// Don't start the worker, so the queue fills up.
	for i := 0; i < 4; i++ {
		ok := ctrl.HandleEvent(confirm.SourceVoice, "", map[string]any{"text": "open notes"})
		require.True(t, ok)
	}
	ok := ctrl.HandleEvent(confirm.SourceVoice, "", map[string]any{"text": "open notes"})
	assert.False(t, ok)
	assert.Equal(t, int64(1), ctrl.GetMetrics().Dropped)
}

func TestController_ExecutesQueuedEvent(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl, _ := newTestController(t, 0, 0)
	ctrl.Start()

	ctrl.HandleEvent(confirm.SourceVoice, "", map[string]any{"text": "open notes"})

	require.Eventually(t, func() bool {
		return ctrl.GetMetrics().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ctrl.Stop(ctx))
}

func TestController_CommandTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl, eng := newTestController(t, 200*time.Millisecond, 20*time.Millisecond)
	ctrl.Start()

	ctrl.HandleEvent(confirm.SourceVoice, "", map[string]any{"text": "open notes"})

	require.Eventually(t, func() bool {
		return ctrl.GetMetrics().TimedOut == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, engine.StatusTimeout, eng.LastResult().Status)

	// The worker is back on the queue: a follow-up command is picked up
	// and processed (it times out too, since every stub step is slow).
	require.True(t, ctrl.HandleEvent(confirm.SourceVoice, "", map[string]any{"text": "open notes"}))
	require.Eventually(t, func() bool {
		return ctrl.GetMetrics().TimedOut == 2
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ctrl.Stop(ctx))
}

func TestController_GestureWithConfiguredSteps(t *testing.T) {
	defer goleak.VerifyNone(t)
	gestures := &stubGestures{m: map[string]struct {
		text  string
		steps []map[string]any
	}{
		"swipe_left": {text: "go back", steps: []map[string]any{{"intent": "key_combo", "keys": []any{"alt", "left"}}}},
	}}
	interp := &stubInterpreter{}
	rtr := router.New(&stubBackend{}, nil, &stubWebBackend{})
	eng := engine.New(interp, confirm.New(), rtr, `\b(delete|remove)\b`, nil)
	ctrl := New(eng, gestures, nil, Config{QueueCapacity: 4})
	ctrl.Start()

	ctrl.HandleEvent(confirm.SourceGesture, "swipe_left", nil)

	require.Eventually(t, func() bool {
		return ctrl.GetMetrics().Executed == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, interp.calls) // the interpreter is never consulted for a canned step list

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ctrl.Stop(ctx))
}
