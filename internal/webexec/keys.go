package webexec

import "github.com/go-rod/rod/lib/input"

// keyInputMap translates the validator's normalized key names to go-rod's
// input.Key constants.
var keyInputMap = map[string]input.Key{
	"enter":     input.Enter,
	"return":    input.Enter,
	"esc":       input.Escape,
	"escape":    input.Escape,
	"tab":       input.Tab,
	"space":     input.Space,
	"backspace": input.Backspace,
	"delete":    input.Delete,
	"up":        input.ArrowUp,
	"down":      input.ArrowDown,
	"left":      input.ArrowLeft,
	"right":     input.ArrowRight,
	"home":      input.Home,
	"end":       input.End,
	"command":   input.MetaLeft,
	"control":   input.ControlLeft,
	"alt":       input.AltLeft,
	"shift":     input.ShiftLeft,
}
