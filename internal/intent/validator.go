package intent

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError is returned when a raw step payload fails its intent's
// field contract. It is descriptive rather than typed further, matching
// the flat wrapped-error style used across the module.
type ValidationError struct {
	Intent string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Intent == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Intent, e.Reason)
}

// keyAliases resolves common shorthand to canonical key tokens.
var keyAliases = map[string]string{
	"cmd":    "command",
	"ctrl":   "control",
	"opt":    "alt",
	"option": "alt",
	"return": "enter",
	"escape": "esc",
}

// ValidateStep is a pure function on a raw step payload: it returns a
// canonical Step or a ValidationError describing why the payload was
// rejected.
func ValidateStep(raw map[string]any) (Step, error) {
	rawIntent, _ := raw["intent"].(string)
	kind := Kind(rawIntent)
	if !KnownKinds[kind] {
		return Step{}, &ValidationError{Intent: rawIntent, Reason: "unknown intent"}
	}

	step := Step{Intent: kind, Fields: map[string]any{}}
	for k, v := range raw {
		step.Fields[k] = v
	}

	if t, ok := raw["target"].(string); ok && t != "" {
		step.Target = Target(t)
	}
	if v, ok := raw["resolved_url"].(string); ok && v != "" {
		step.ResolvedURL = v
	}
	if v, ok := raw["precomputed"].(bool); ok {
		step.Precomputed = v
	}
	if v, ok := raw["defer_open"].(bool); ok {
		step.DeferOpen = v
	}

	var err error
	switch kind {
	case OpenURL:
		err = validateOpenURL(raw, &step)
	case WaitForURL:
		err = validateWaitForURL(raw, &step)
	case OpenApp:
		err = validateNonEmptyString(raw, "app", &step.App)
	case OpenFile:
		err = validateNonEmptyString(raw, "path", &step.Path)
	case KeyCombo:
		err = validateKeyCombo(raw, &step)
	case TypeText:
		err = validateNonEmptyString(raw, "text", &step.Text)
	case Scroll:
		err = validateScroll(raw, &step)
	case MouseMove:
		err = validateMouseMove(raw, &step)
	case Click:
		err = validateClick(raw, &step)
	case WebSendMessage:
		err = validateWebSendMessage(raw, &step)
	case FindUI:
		err = validateFindUI(raw, &step)
	case InvokeUI:
		err = validateInvokeUI(raw, &step)
	case WaitForWindow:
		err = validateWaitForWindow(raw, &step)
	case WebFillForm:
		err = validateWebFillForm(raw, &step)
	case WebRequestPerm:
		// reserved, no required fields.
	}
	if err != nil {
		return Step{}, err
	}

	if step.Target == "" && (strings.HasPrefix(string(kind), "web_")) {
		step.Target = TargetWeb
	}

	return step, nil
}

func validationErr(intent, reason string) error {
	return &ValidationError{Intent: intent, Reason: reason}
}

func validateNonEmptyString(raw map[string]any, field string, dst *string) error {
	v, _ := raw[field].(string)
	if strings.TrimSpace(v) == "" {
		return validationErr(asIntent(raw), field+" must be non-empty")
	}
	*dst = v
	return nil
}

func asIntent(raw map[string]any) string {
	v, _ := raw["intent"].(string)
	return v
}

func validateOpenURL(raw map[string]any, step *Step) error {
	return validateNonEmptyString(raw, "url", &step.URL)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func validateWaitForURL(raw map[string]any, step *Step) error {
	if err := validateNonEmptyString(raw, "url", &step.URL); err != nil {
		return err
	}
	timeout, ok := toFloat(raw["timeout_secs"])
	if !ok || timeout < 0 {
		return validationErr(asIntent(raw), "timeout_secs must be a number >= 0")
	}
	interval, ok := toFloat(raw["interval_secs"])
	if !ok || interval <= 0 {
		return validationErr(asIntent(raw), "interval_secs must be a number > 0")
	}
	step.TimeoutSecs = timeout
	step.IntervalSecs = interval
	return nil
}

// resolveKeyAlias lowercases a key token and maps known aliases.
func resolveKeyAlias(tok string) string {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if alias, ok := keyAliases[tok]; ok {
		return alias
	}
	return tok
}

func validateKeyCombo(raw map[string]any, step *Step) error {
	var tokens []string
	switch v := raw["keys"].(type) {
	case string:
		for _, part := range strings.Split(v, "+") {
			if part = strings.TrimSpace(part); part != "" {
				tokens = append(tokens, part)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				tokens = append(tokens, s)
			}
		}
	case []string:
		tokens = append(tokens, v...)
	}
	if len(tokens) == 0 {
		return validationErr(asIntent(raw), "keys must be a non-empty sequence of key tokens")
	}
	resolved := make([]string, 0, len(tokens))
	for _, t := range tokens {
		resolved = append(resolved, resolveKeyAlias(t))
	}
	step.Keys = resolved
	return nil
}

func validateScroll(raw map[string]any, step *Step) error {
	dir, _ := raw["direction"].(string)
	dir = strings.ToLower(strings.TrimSpace(dir))
	if dir != "up" && dir != "down" {
		return validationErr(asIntent(raw), "direction must be up or down")
	}
	amount, ok := toInt(raw["amount"])
	if !ok || amount < 1 {
		return validationErr(asIntent(raw), "amount must be an int >= 1")
	}
	step.Direction = dir
	step.Amount = amount
	return nil
}

func validateMouseMove(raw map[string]any, step *Step) error {
	x, okx := toInt(raw["x"])
	y, oky := toInt(raw["y"])
	if !okx || !oky {
		return validationErr(asIntent(raw), "x and y must be integers")
	}
	step.X, step.Y = x, y
	return nil
}

func validateClick(raw map[string]any, step *Step) error {
	button, _ := raw["button"].(string)
	button = strings.ToLower(strings.TrimSpace(button))
	if button == "" {
		button = "left"
	}
	if button != "left" && button != "right" && button != "middle" {
		return validationErr(asIntent(raw), "button must be left, right, or middle")
	}
	clicks, ok := toInt(raw["clicks"])
	if !ok || clicks < 1 {
		if raw["clicks"] == nil {
			clicks = 1
		} else {
			return validationErr(asIntent(raw), "clicks must be an int >= 1")
		}
	}
	step.Button = button
	step.Clicks = clicks
	return nil
}

func validateWebSendMessage(raw map[string]any, step *Step) error {
	contact, _ := raw["contact"].(string)
	message, _ := raw["message"].(string)
	if strings.TrimSpace(contact) == "" {
		return validationErr(asIntent(raw), "contact must be non-empty")
	}
	if strings.TrimSpace(message) == "" {
		return validationErr(asIntent(raw), "message must be non-empty")
	}
	step.Contact = contact
	step.Message = message
	step.Target = TargetWeb
	return nil
}

var selectorKeys = []string{"app", "window_title", "role", "name", "contains", "automation_id"}

func validateFindUI(raw map[string]any, step *Step) error {
	sel, _ := raw["selector"].(map[string]any)
	if len(sel) == 0 {
		return validationErr(asIntent(raw), "selector must specify at least one of app/window_title/role/name/contains/automation_id")
	}
	found := false
	for _, k := range selectorKeys {
		if _, ok := sel[k]; ok {
			found = true
			break
		}
	}
	if !found {
		return validationErr(asIntent(raw), "selector must specify at least one known field")
	}
	step.Selector = sel
	return nil
}

func validateInvokeUI(raw map[string]any, step *Step) error {
	elementID, _ := raw["element_id"].(string)
	sel, _ := raw["selector"].(map[string]any)
	if strings.TrimSpace(elementID) == "" && len(sel) == 0 {
		return validationErr(asIntent(raw), "element_id or selector is required")
	}
	step.ElementID = elementID
	step.Selector = sel
	return nil
}

func validateWaitForWindow(raw map[string]any, step *Step) error {
	title, _ := raw["window_title"].(string)
	if strings.TrimSpace(title) == "" {
		return validationErr(asIntent(raw), "window_title must be non-empty")
	}
	step.WindowTitle = title
	if app, ok := raw["app"].(string); ok {
		step.App = app
	}
	timeout, ok := toFloat(raw["timeout_secs"])
	if !ok || timeout < 0 {
		return validationErr(asIntent(raw), "timeout_secs must be a number >= 0")
	}
	step.TimeoutSecs = timeout
	return nil
}

func validateWebFillForm(raw map[string]any, step *Step) error {
	fields, _ := raw["fields"].(map[string]any)
	if len(fields) == 0 {
		return validationErr(asIntent(raw), "fields must be a non-empty selector->value map")
	}
	step.Selector = fields
	step.Target = TargetWeb
	return nil
}

// ValidateSteps validates each raw payload in order, stopping and returning
// the first error encountered alongside the steps validated so far.
func ValidateSteps(raws []map[string]any) ([]Step, error) {
	out := make([]Step, 0, len(raws))
	for _, raw := range raws {
		step, err := ValidateStep(raw)
		if err != nil {
			return out, err
		}
		out = append(out, step)
	}
	return out, nil
}

// ValidateStepsLenient validates each raw payload, dropping any step that
// fails validation rather than aborting the whole list; used by Run,
// which only cares about the surviving cleanedSteps.
func ValidateStepsLenient(raws []map[string]any) []Step {
	out := make([]Step, 0, len(raws))
	for _, raw := range raws {
		if step, err := ValidateStep(raw); err == nil {
			out = append(out, step)
		}
	}
	return out
}
