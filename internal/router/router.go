// Package router implements the execution router: it rewrites a step list
// for web-chain inference, then dispatches each step to the matching
// backend.
package router

import (
	"context"

	"handsfree/internal/intent"
	"handsfree/internal/logging"
	"handsfree/internal/resolve"
)

// Backend executes a single validated step on one platform.
type Backend interface {
	ExecuteStep(ctx context.Context, step intent.Step) (ExecutionResult, error)
}

// ExecutionResult is the outcome of dispatching one step.
type ExecutionResult struct {
	Intent            string
	Status            string // ok | failed | unsupported
	Target            string
	Details           map[string]any
	ElapsedMs         int64
	ResolvedURL       string
	FallbackUsed      string
	NavigationTimeMs  int64
	DOMSearchQuery    string
}

// WebBackend is the persistent browser backend; it additionally exposes
// FlushDeferredOpen to commit any navigation still held at the end of a
// command's step list.
type WebBackend interface {
	Backend
	FlushDeferredOpen(ctx context.Context) error
}

// Router rewrites step lists for web-chain inference and dispatches each
// step to the matching backend. When the primary OS backend reports
// "unsupported" for a step, the step is re-dispatched to the generic
// fallback backend.
type Router struct {
	osBackend  Backend
	fallback   Backend
	webBackend WebBackend
}

// New constructs a Router. fallback may be nil, in which case unsupported
// steps are returned as-is.
func New(osBackend, fallback Backend, webBackend WebBackend) *Router {
	return &Router{osBackend: osBackend, fallback: fallback, webBackend: webBackend}
}

// Rewrite applies web-chain inference to a validated step list,
// returning a new list; the input is never mutated.
func Rewrite(steps []intent.Step) []intent.Step {
	out := make([]intent.Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}

	// Step 1: promote open_app when a later step targets the web.
	for i := range out {
		if out[i].Intent != intent.OpenApp {
			continue
		}
		if !laterStepIsWeb(out, i+1) {
			continue
		}
		domain := resolve.DomainForApp(out[i].App)
		if domain == "" {
			continue
		}
		rewritten := intent.Step{
			Intent: intent.OpenURL,
			Target: intent.TargetWeb,
			URL:    "https://" + domain,
		}
		if i+1 < len(out) && intent.WebChainable[out[i+1].Intent] {
			rewritten.DeferOpen = true
		}
		out[i] = rewritten
	}

	// Step 2 & 3: chain propagation from each web open_url.
	inChain := false
	for i := range out {
		step := out[i]
		if step.Intent == intent.OpenURL && step.Target == intent.TargetWeb {
			inChain = true
			if i+1 < len(out) && intent.WebChainable[out[i+1].Intent] {
				out[i].DeferOpen = true
			}
			continue
		}
		if !inChain {
			continue
		}
		if step.Intent == intent.WaitForURL {
			// Dropped: the browser waits natively inside a web chain.
			out[i].Intent = ""
			continue
		}
		if intent.WebChainable[step.Intent] {
			out[i].Target = intent.TargetWeb
			continue
		}
		// Any other intent breaks the chain.
		inChain = false
	}

	return dropEmptied(out)
}

// laterStepIsWeb reports whether any step at or after from targets the web,
// either explicitly or by a web_-prefixed intent.
func laterStepIsWeb(steps []intent.Step, from int) bool {
	for i := from; i < len(steps); i++ {
		if steps[i].Target == intent.TargetWeb || hasWebPrefix(steps[i].Intent) {
			return true
		}
	}
	return false
}

func hasWebPrefix(k intent.Kind) bool {
	s := string(k)
	return len(s) >= 4 && s[:4] == "web_"
}

func dropEmptied(steps []intent.Step) []intent.Step {
	out := steps[:0]
	for _, s := range steps {
		if s.Intent == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Dispatch rewrites then executes a step list in order, flushing any
// deferred web navigation at the end.
func (r *Router) Dispatch(ctx context.Context, steps []intent.Step) ([]ExecutionResult, error) {
	rewritten := Rewrite(steps)
	results := make([]ExecutionResult, 0, len(rewritten))

	// The deferred open is flushed exactly once at the end of a command's
	// step list, even when a step aborts the command.
	defer func() {
		if err := r.webBackend.FlushDeferredOpen(ctx); err != nil {
			logging.Router("flush deferred open failed: %v", err)
		}
	}()

	for _, step := range rewritten {
		var res ExecutionResult
		var err error
		if step.Target == intent.TargetWeb {
			res, err = r.webBackend.ExecuteStep(ctx, step)
		} else {
			res, err = r.osBackend.ExecuteStep(ctx, step)
			if err == nil && res.Status == "unsupported" && r.fallback != nil {
				logging.Router("step %s unsupported on primary OS backend, re-dispatching to generic fallback", step.Intent)
				res, err = r.fallback.ExecuteStep(ctx, step)
				if err == nil {
					if res.Details == nil {
						res.Details = map[string]any{}
					}
					res.Details["fallback_from"] = "os_primary"
				}
			}
		}
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
