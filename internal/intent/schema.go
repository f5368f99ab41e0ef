// Package intent defines the closed vocabulary of step kinds the command
// engine may produce and the per-kind field contracts that gate them before
// execution.
package intent

// Kind is one of the closed set of step intents.
type Kind string

const (
	OpenURL        Kind = "open_url"
	WaitForURL     Kind = "wait_for_url"
	OpenApp        Kind = "open_app"
	OpenFile       Kind = "open_file"
	KeyCombo       Kind = "key_combo"
	TypeText       Kind = "type_text"
	Scroll         Kind = "scroll"
	MouseMove      Kind = "mouse_move"
	Click          Kind = "click"
	WebSendMessage Kind = "web_send_message"
	FindUI         Kind = "find_ui"
	InvokeUI       Kind = "invoke_ui"
	WaitForWindow  Kind = "wait_for_window"
	WebFillForm    Kind = "web_fill_form"
	WebRequestPerm Kind = "web_request_permission"
)

// KnownKinds is the closed vocabulary the validator enforces.
var KnownKinds = map[Kind]bool{
	OpenURL:        true,
	WaitForURL:     true,
	OpenApp:        true,
	OpenFile:       true,
	KeyCombo:       true,
	TypeText:       true,
	Scroll:         true,
	MouseMove:      true,
	Click:          true,
	WebSendMessage: true,
	FindUI:         true,
	InvokeUI:       true,
	WaitForWindow:  true,
	WebFillForm:    true,
	WebRequestPerm: true,
}

// WebChainable is the set of intents that continue an open web chain.
var WebChainable = map[Kind]bool{
	TypeText: true,
	KeyCombo: true,
	Click:    true,
	Scroll:   true,
}

// Target names which execution backend a step belongs to.
type Target string

const (
	TargetOS  Target = "os"
	TargetWeb Target = "web"
)

// Step is a validated unit of work.
type Step struct {
	Intent  Kind           `json:"intent"`
	Target  Target         `json:"target,omitempty"`
	Fields  map[string]any `json:"-"`

	// Typed fields populated by the validator with the canonical values for
	// the intents that use them. Fields is a copy of the raw payload as
	// received (unknown keys and un-aliased values included) and is not
	// serialized.
	URL            string   `json:"url,omitempty"`
	App            string   `json:"app,omitempty"`
	Path           string   `json:"path,omitempty"`
	Keys           []string `json:"keys,omitempty"`
	Text           string   `json:"text,omitempty"`
	Direction      string   `json:"direction,omitempty"`
	Amount         int      `json:"amount,omitempty"`
	X              int      `json:"x,omitempty"`
	Y              int      `json:"y,omitempty"`
	Button         string   `json:"button,omitempty"`
	Clicks         int      `json:"clicks,omitempty"`
	Contact        string   `json:"contact,omitempty"`
	Message        string   `json:"message,omitempty"`
	TimeoutSecs    float64  `json:"timeout_secs,omitempty"`
	IntervalSecs   float64  `json:"interval_secs,omitempty"`
	WindowTitle    string   `json:"window_title,omitempty"`
	Selector       map[string]any `json:"selector,omitempty"`
	ElementID      string   `json:"element_id,omitempty"`

	// Runtime-only annotations.
	ResolvedURL  string `json:"resolved_url,omitempty"`
	Precomputed  bool   `json:"precomputed,omitempty"`
	DeferOpen    bool   `json:"defer_open,omitempty"`
}

// Clone returns a deep-enough copy so router rewriting never mutates a step
// a caller still holds a reference to.
func (s Step) Clone() Step {
	out := s
	if s.Keys != nil {
		out.Keys = append([]string(nil), s.Keys...)
	}
	if s.Selector != nil {
		out.Selector = make(map[string]any, len(s.Selector))
		for k, v := range s.Selector {
			out.Selector[k] = v
		}
	}
	if s.Fields != nil {
		out.Fields = make(map[string]any, len(s.Fields))
		for k, v := range s.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// NormalizeSteps accepts either a raw list of step payloads or an object
// with a "steps" key; anything else
// normalizes to an empty list.
func NormalizeSteps(payload any) []map[string]any {
	switch v := payload.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		if steps, ok := v["steps"]; ok {
			return NormalizeSteps(steps)
		}
		return nil
	default:
		return nil
	}
}
