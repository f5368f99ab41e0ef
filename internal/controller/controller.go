// Package controller implements the bounded command queue, its single
// worker, per-job hard timeout, and event ingress: a
// single-worker, single-priority FIFO with drop-newest overflow.
package controller

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"handsfree/internal/confirm"
	"handsfree/internal/engine"
	"handsfree/internal/logging"
	"handsfree/internal/webexec"
)

// workerGeneration hands the web executor a thread-identity proxy. Go exposes
// no real OS thread id, so each worker startup gets a fresh generation
// number instead of the actual one LockOSThread pinned it to.
var workerGeneration int64

// Event is the inbound ingress event.
type Event struct {
	Source  confirm.Source
	Action  string
	Payload map[string]any
}

// GestureLookup resolves a gesture label to its configured text and
// optional pre-validated step list.
type GestureLookup interface {
	Lookup(label string) (text string, steps []map[string]any, ok bool)
}

// ContextGatherer collects a UI-context snapshot (active window, cursor
// position, current selection); SkipSelection avoids a clipboard-clobbering
// selection read for trivial shortcut commands.
type ContextGatherer interface {
	Snapshot(skipSelection bool) map[string]any
}

// Config configures the controller's queue capacity and per-job timeout.
type Config struct {
	QueueCapacity int
	CommandTimeout time.Duration // <=0 disables the deadline
}

// Metrics exposes atomic counters for operational visibility (mirroring
// a queued/rejected counter pair), surfaced through the
// CLI's `status` subcommand.
type Metrics struct {
	Queued   int64
	Dropped  int64
	Executed int64
	TimedOut int64
}

// Controller owns the bounded FIFO queue, the single worker, the engine,
// and the configured command timeout.
type Controller struct {
	cfg      Config
	eng      *engine.Engine
	gestures GestureLookup
	ctxGather ContextGatherer

	queue  chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool

	metrics Metrics
}

// New constructs a Controller. gestures/ctxGather may be nil; a nil
// GestureLookup treats every gesture event as free text, a nil
// ContextGatherer supplies an empty context snapshot.
func New(eng *engine.Engine, gestures GestureLookup, ctxGather ContextGatherer, cfg Config) *Controller {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 64
	}
	return &Controller{
		cfg:       cfg,
		eng:       eng,
		gestures:  gestures,
		ctxGather: ctxGather,
		queue:     make(chan Event, cfg.QueueCapacity),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the single worker goroutine. Idempotent.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.worker()
	logging.Controller("started, queue_capacity=%d, command_timeout=%s", c.cfg.QueueCapacity, c.cfg.CommandTimeout)
}

// Stop signals the worker to exit and waits, bounded by ctx, for the command
// it is running to finish. Events still in the queue are not processed.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Controller("stopped gracefully")
		return nil
	case <-ctx.Done():
		logging.Controller("stop drain deadline exceeded, worker may still be finishing its current command")
		return ctx.Err()
	}
}

// HandleEvent enqueues non-blockingly; on a full queue it drops the event
// and logs a warning.
func (c *Controller) HandleEvent(source confirm.Source, action string, payload map[string]any) bool {
	ev := Event{Source: source, Action: action, Payload: payload}
	select {
	case c.queue <- ev:
		atomic.AddInt64(&c.metrics.Queued, 1)
		return true
	default:
		atomic.AddInt64(&c.metrics.Dropped, 1)
		logging.Controller("queue full (capacity=%d), dropping event source=%s action=%s", c.cfg.QueueCapacity, source, action)
		return false
	}
}

// GetMetrics returns a snapshot of the controller's atomic counters.
func (c *Controller) GetMetrics() Metrics {
	return Metrics{
		Queued:   atomic.LoadInt64(&c.metrics.Queued),
		Dropped:  atomic.LoadInt64(&c.metrics.Dropped),
		Executed: atomic.LoadInt64(&c.metrics.Executed),
		TimedOut: atomic.LoadInt64(&c.metrics.TimedOut),
	}
}

// worker pops one event at a time; at any instant at most one command is
// executing.
func (c *Controller) worker() {
	defer c.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	gen := atomic.AddInt64(&workerGeneration, 1)
	webexec.SetThreadAffinity(gen)

	for {
		select {
		case <-c.stopCh:
			return
		case ev := <-c.queue:
			c.process(ev)
		}
	}
}

// process resolves the event to (text, steps) and runs it on a short-lived
// helper task with a hard wall-clock timeout.
func (c *Controller) process(ev Event) {
	text, steps, useSteps := c.resolveEvent(ev)

	var uiContext map[string]any
	skipSelection := useSteps || (text != "" && engine.IsShortcutPhrase(text))
	if c.ctxGather != nil {
		uiContext = c.ctxGather.Snapshot(skipSelection)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if c.cfg.CommandTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CommandTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	resultCh := make(chan engine.Result, 1)
	g.Go(func() error {
		var res engine.Result
		if useSteps {
			res = c.eng.RunSteps(gctx, ev.Source, text, steps)
		} else {
			res = c.eng.Run(gctx, ev.Source, text, uiContext)
		}
		resultCh <- res
		return nil
	})

	select {
	case res := <-resultCh:
		if res.Status == engine.StatusOK {
			atomic.AddInt64(&c.metrics.Executed, 1)
		}
	case <-ctx.Done():
		// The engine call is abandoned and may still be running; the web
		// executor's mutex serializes it against the next command's web
		// steps. The abandoned call never reaches the last-result store, so
		// the worker records the timeout itself before returning to the queue.
		atomic.AddInt64(&c.metrics.TimedOut, 1)
		c.eng.StoreTimeout("command exceeded " + c.cfg.CommandTimeout.String())
		logging.Controller("command timed out after %s", c.cfg.CommandTimeout)
	}
}

// resolveEvent maps an inbound event to (text, steps): a gesture event
// with a configured step list calls run_steps; everything else is free
// text (the gesture's configured text, or the voice payload verbatim).
func (c *Controller) resolveEvent(ev Event) (text string, steps []map[string]any, useSteps bool) {
	if ev.Source == confirm.SourceGesture {
		if c.gestures != nil {
			if configuredText, configuredSteps, ok := c.gestures.Lookup(ev.Action); ok {
				if len(configuredSteps) > 0 {
					return configuredText, configuredSteps, true
				}
				return configuredText, nil, false
			}
		}
		return ev.Action, nil, false
	}
	if payloadText, ok := ev.Payload["text"].(string); ok {
		return payloadText, nil, false
	}
	return "", nil, false
}
