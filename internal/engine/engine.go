// Package engine implements the command engine: parse -> validate ->
// confirm -> execute, plus the last-result store.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"handsfree/internal/confirm"
	"handsfree/internal/intent"
	"handsfree/internal/logging"
	"handsfree/internal/router"
	"handsfree/internal/webexec"
)

// Status tags the outcome of a run/run_steps/approve/deny call.
type Status string

const (
	StatusIgnored Status = "ignored"
	StatusPending Status = "pending"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusDenied  Status = "denied"
	StatusMissing Status = "missing"
)

// Result is the outcome of one engine call, polled via LastResult.
type Result struct {
	Status     Status
	Reason     string
	ID         string
	Code       string
	Screenshot string
	Results    []router.ExecutionResult
	Timestamp  time.Time
}

// Interpreter is the narrow collaborator boundary to the external LLM;
// satisfied by *llm.Client.
type Interpreter interface {
	Interpret(ctx context.Context, text string, uiContext map[string]any, allowedIntents []string) (any, error)
}

// shortcutPhrases maps a normalized words-only phrase to the key sequence
// for the operator shortcut path.
var shortcutPhrases = map[string][]string{
	"copy":       {"c"},
	"paste":      {"v"},
	"cut":        {"x"},
	"undo":       {"z"},
	"redo":       {"y"},
	"select all": {"a"},
}

var wordsOnlyRE = regexp.MustCompile(`[^a-z ]+`)

// AllowedIntents is the full closed vocabulary handed to the interpreter
// as its schema hint.
var AllowedIntents = func() []string {
	out := make([]string, 0, len(intent.KnownKinds))
	for k := range intent.KnownKinds {
		out = append(out, string(k))
	}
	return out
}()

// Engine wires together the validator, confirmation store, router, and LLM
// client into the run/run_steps/approve/deny pipeline.
type Engine struct {
	interpreter    Interpreter
	confirms       *confirm.Store
	router         *router.Router
	sensitive      *regexp.Regexp
	alwaysConfirm  map[intent.Kind]bool

	mu   sync.Mutex
	last Result
}

// New constructs an Engine. sensitivePattern is compiled once; an invalid
// pattern degrades to never-matching rather than panicking at runtime.
func New(interp Interpreter, confirms *confirm.Store, rtr *router.Router, sensitivePattern string, alwaysConfirm []string) *Engine {
	re, err := regexp.Compile("(?i)" + sensitivePattern)
	if err != nil {
		logging.Engine("invalid sensitive pattern %q: %v", sensitivePattern, err)
		re = regexp.MustCompile(`$^`) // matches nothing
	}
	always := make(map[intent.Kind]bool, len(alwaysConfirm))
	for _, k := range alwaysConfirm {
		always[intent.Kind(k)] = true
	}
	return &Engine{interpreter: interp, confirms: confirms, router: rtr, sensitive: re, alwaysConfirm: always}
}

// Run takes free text and an optional UI-context snapshot through the
// full parse -> validate -> confirm -> execute pipeline.
func (e *Engine) Run(ctx context.Context, source confirm.Source, text string, uiContext map[string]any) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return e.store(Result{Status: StatusIgnored, Reason: "empty"})
	}

	if steps, ok := shortcutSteps(trimmed); ok {
		return e.runSteps(ctx, source, trimmed, steps)
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var payload any
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			raws := intent.NormalizeSteps(payload)
			cleaned := intent.ValidateStepsLenient(raws)
			if len(cleaned) == 0 {
				return e.store(Result{Status: StatusIgnored, Reason: "no_steps"})
			}
			return e.gateAndExecute(ctx, source, trimmed, cleaned)
		}
		// Fall through to the interpreter if it doesn't parse as JSON.
	}

	payload, err := e.interpreter.Interpret(ctx, trimmed, uiContext, AllowedIntents)
	if err != nil {
		logging.Engine("interpreter error: %v", err)
		return e.store(Result{Status: StatusError, Reason: err.Error()})
	}

	raws := intent.NormalizeSteps(payload)
	cleaned := intent.ValidateStepsLenient(raws)
	if len(cleaned) == 0 {
		return e.store(Result{Status: StatusIgnored, Reason: "no_steps"})
	}
	return e.gateAndExecute(ctx, source, trimmed, cleaned)
}

// RunSteps implements run_steps: identical to Run from validation onward,
// for a gesture already mapped to a canned step list.
func (e *Engine) RunSteps(ctx context.Context, source confirm.Source, text string, raws []map[string]any) Result {
	return e.runSteps(ctx, source, text, intent.ValidateStepsLenient(raws))
}

func (e *Engine) runSteps(ctx context.Context, source confirm.Source, text string, cleaned []intent.Step) Result {
	if len(cleaned) == 0 {
		return e.store(Result{Status: StatusIgnored, Reason: "no_steps"})
	}
	return e.gateAndExecute(ctx, source, text, cleaned)
}

// gateAndExecute applies the confirmation gate then
// executes, or returns a pending confirmation.
func (e *Engine) gateAndExecute(ctx context.Context, source confirm.Source, text string, steps []intent.Step) Result {
	if reason, needsConfirm := e.needsConfirmation(text, steps); needsConfirm {
		rec := e.confirms.Create(source, text, reason, steps)
		return e.store(Result{Status: StatusPending, ID: rec.ID, Reason: reason})
	}
	if groups := GroupSubjects(text, steps); len(groups) > 1 {
		for _, g := range groups {
			logging.EngineDebug("subject group %q starts at step %d (%d steps)", g.Subject, g.StartIndex, len(g.Steps))
		}
	}
	return e.execute(ctx, steps)
}

func (e *Engine) needsConfirmation(text string, steps []intent.Step) (string, bool) {
	if e.sensitive.MatchString(text) {
		return "sensitive_text", true
	}
	for _, s := range steps {
		if e.alwaysConfirm[s.Intent] {
			return "always_confirm_intent:" + string(s.Intent), true
		}
		if s.Intent == intent.TypeText && e.sensitive.MatchString(s.Text) {
			return "sensitive_type_text", true
		}
	}
	return "", false
}

func (e *Engine) execute(ctx context.Context, steps []intent.Step) Result {
	results, err := e.router.Dispatch(ctx, steps)
	if err != nil {
		res := Result{Status: StatusError, Reason: err.Error(), Results: results}
		var wErr *webexec.WebExecutionError
		if errors.As(err, &wErr) {
			res.Reason = wErr.Message
			res.Code = wErr.Code
			res.Screenshot = wErr.ScreenshotPath
		}
		return e.store(res)
	}
	return e.store(Result{Status: StatusOK, Results: results})
}

// Approve removes the confirmation and executes its stored step list.
func (e *Engine) Approve(ctx context.Context, id string) Result {
	rec, ok := e.confirms.Take(id)
	if !ok {
		return e.store(Result{Status: StatusMissing})
	}
	return e.execute(ctx, rec.Steps)
}

// Deny removes the confirmation without executing it.
func (e *Engine) Deny(id string) Result {
	_, ok := e.confirms.Take(id)
	if !ok {
		return e.store(Result{Status: StatusMissing})
	}
	return e.store(Result{Status: StatusDenied})
}

// StoreTimeout records a timed-out command in the last-result slot. The
// controller calls this when a command blows its wall-clock deadline: the
// engine call is abandoned, not unwound, so the worker writes the timeout
// itself before returning to the queue.
func (e *Engine) StoreTimeout(message string) Result {
	return e.store(Result{Status: StatusTimeout, Reason: message})
}

// ListPending returns the confirmations still awaiting approval.
func (e *Engine) ListPending() []confirm.Record {
	return e.confirms.List()
}

// LastResult returns the most recently stored result, for UI polling.
func (e *Engine) LastResult() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) store(r Result) Result {
	r.Timestamp = time.Now()
	e.mu.Lock()
	e.last = r
	e.mu.Unlock()
	return r
}

// IsShortcutPhrase reports whether text would take the shortcut path,
// without actually building its steps; the controller uses this to decide
// whether gathering UI context (which includes a selection read) is worth
// the clipboard-clobbering risk for a command this trivial.
func IsShortcutPhrase(text string) bool {
	_, ok := shortcutSteps(text)
	return ok
}

// shortcutSteps handles the operator shortcut path: normalize to lowercase
// words-only, match against the canned shortcut phrases, and emit a single
// key_combo step with the OS-appropriate modifier.
func shortcutSteps(text string) ([]intent.Step, bool) {
	normalized := strings.TrimSpace(wordsOnlyRE.ReplaceAllString(strings.ToLower(text), ""))
	normalized = strings.Join(strings.Fields(normalized), " ")
	keys, ok := shortcutPhrases[normalized]
	if !ok {
		return nil, false
	}
	mod := "control"
	if runtime.GOOS == "darwin" {
		mod = "command"
	}
	return []intent.Step{{Intent: intent.KeyCombo, Keys: append([]string{mod}, keys...)}}, true
}
