package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStep_UnknownIntent(t *testing.T) {
	_, err := ValidateStep(map[string]any{"intent": "nonsense"})
	require.Error(t, err)
}

func TestValidateStep_OpenURL(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "open_url", "url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, OpenURL, step.Intent)
	assert.Equal(t, "https://example.com", step.URL)
}

func TestValidateStep_OpenURL_Empty(t *testing.T) {
	_, err := ValidateStep(map[string]any{"intent": "open_url", "url": ""})
	require.Error(t, err)
}

func TestValidateStep_KeyCombo_StringForm(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "key_combo", "keys": "cmd+c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"command", "c"}, step.Keys)
}

func TestValidateStep_KeyCombo_Aliases(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "key_combo", "keys": []any{"ctrl", "opt", "return", "escape"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"control", "alt", "enter", "esc"}, step.Keys)
}

func TestValidateStep_KeyCombo_Empty(t *testing.T) {
	_, err := ValidateStep(map[string]any{"intent": "key_combo", "keys": ""})
	require.Error(t, err)
}

func TestValidateStep_WaitForURL(t *testing.T) {
	step, err := ValidateStep(map[string]any{
		"intent": "wait_for_url", "url": "https://x.com",
		"timeout_secs": 5.0, "interval_secs": 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, step.TimeoutSecs)
	assert.Equal(t, 0.5, step.IntervalSecs)
}

func TestValidateStep_WaitForURL_BadInterval(t *testing.T) {
	_, err := ValidateStep(map[string]any{
		"intent": "wait_for_url", "url": "https://x.com",
		"timeout_secs": 5.0, "interval_secs": 0.0,
	})
	require.Error(t, err)
}

func TestValidateStep_Scroll(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "scroll", "direction": "down", "amount": 3})
	require.NoError(t, err)
	assert.Equal(t, "down", step.Direction)
	assert.Equal(t, 3, step.Amount)

	_, err = ValidateStep(map[string]any{"intent": "scroll", "direction": "sideways", "amount": 3})
	require.Error(t, err)

	_, err = ValidateStep(map[string]any{"intent": "scroll", "direction": "up", "amount": 0})
	require.Error(t, err)
}

func TestValidateStep_Click_Defaults(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "click"})
	require.NoError(t, err)
	assert.Equal(t, "left", step.Button)
	assert.Equal(t, 1, step.Clicks)
}

func TestValidateStep_WebSendMessage_TargetsWeb(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "web_send_message", "contact": "Alice", "message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, TargetWeb, step.Target)
}

func TestValidateStep_FindUI_RequiresKnownField(t *testing.T) {
	_, err := ValidateStep(map[string]any{"intent": "find_ui", "selector": map[string]any{"unknown": "x"}})
	require.Error(t, err)

	step, err := ValidateStep(map[string]any{"intent": "find_ui", "selector": map[string]any{"app": "Finder"}})
	require.NoError(t, err)
	assert.Equal(t, "Finder", step.Selector["app"])
}

func TestValidateStep_UnknownFieldsDropped(t *testing.T) {
	step, err := ValidateStep(map[string]any{"intent": "open_app", "app": "Safari", "junk": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "Safari", step.App)

	wire, err := json.Marshal(step)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), "junk")
}

// Normalization is idempotent for every payload the validator accepts.
func TestValidateStep_Idempotent(t *testing.T) {
	raws := []map[string]any{
		{"intent": "open_url", "url": "https://example.com"},
		{"intent": "key_combo", "keys": "cmd+c"},
		{"intent": "scroll", "direction": "up", "amount": 2},
	}
	for _, raw := range raws {
		step, err := ValidateStep(raw)
		require.NoError(t, err)
		again, err := ValidateStep(map[string]any{
			"intent": string(step.Intent),
			"url":    step.URL,
			"keys":   step.Keys,
			"direction": step.Direction,
			"amount": step.Amount,
		})
		require.NoError(t, err)
		assert.Equal(t, step.Intent, again.Intent)
		assert.Equal(t, step.URL, again.URL)
		assert.Equal(t, step.Keys, again.Keys)
		assert.Equal(t, step.Direction, again.Direction)
		assert.Equal(t, step.Amount, again.Amount)
	}
}

func TestNormalizeSteps(t *testing.T) {
	list := NormalizeSteps([]any{
		map[string]any{"intent": "open_url", "url": "https://a.com"},
	})
	assert.Len(t, list, 1)

	wrapped := NormalizeSteps(map[string]any{
		"steps": []any{map[string]any{"intent": "open_app", "app": "Mail"}},
	})
	assert.Len(t, wrapped, 1)

	assert.Empty(t, NormalizeSteps("garbage"))
	assert.Empty(t, NormalizeSteps(42))
}
