package webexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handsfree/internal/intent"
)

func TestContainsEnter(t *testing.T) {
	assert.True(t, containsEnter([]string{"enter"}))
	assert.True(t, containsEnter([]string{"command", "return"}))
	assert.False(t, containsEnter([]string{"tab"}))
	assert.False(t, containsEnter(nil))
}

func TestWebExecutionError_Error(t *testing.T) {
	err := &WebExecutionError{Code: WAContactNotFound, Message: "no result for \"mom\""}
	assert.Equal(t, `WA_CONTACT_NOT_FOUND: no result for "mom"`, err.Error())
}

func TestURLEscape(t *testing.T) {
	assert.Equal(t, "lofi+girl", urlEscape("lofi girl"))
}

func TestSetThreadAffinity(t *testing.T) {
	SetThreadAffinity(42)
	assert.Equal(t, int64(42), lockedOSThreadID())
	SetThreadAffinity(0)
}

func TestOriginOf(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com", originOf("https://www.youtube.com/watch?v=abc"))
	assert.Equal(t, "https://x.com", originOf("https://x.com/"))
	assert.Equal(t, "https://x.com", originOf("https://x.com"))
}

// newDegradedExecutor returns an executor whose browser runtime is flagged
// missing, with the system-browser handoff intercepted.
func newDegradedExecutor() (*Executor, *[]string) {
	var opened []string
	e := NewExecutor(Config{}, nil)
	e.missing = true
	e.openSystem = func(ctx context.Context, target string) error {
		opened = append(opened, target)
		return nil
	}
	return e, &opened
}

func TestDegraded_UnsupportedIntentFailsWithPlaywrightMissing(t *testing.T) {
	e, _ := newDegradedExecutor()
	res, err := e.ExecuteStep(context.Background(), intent.Step{Intent: intent.Scroll, Direction: "down", Amount: 2})
	assert.Equal(t, "failed", res.Status)
	var wErr *WebExecutionError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, CodePlaywrightMissing, wErr.Code)
}

func TestDegraded_ResolvedURLOpensInSystemBrowser(t *testing.T) {
	e, opened := newDegradedExecutor()
	res, err := e.ExecuteStep(context.Background(), intent.Step{
		Intent:      intent.OpenURL,
		Target:      intent.TargetWeb,
		URL:         "youtube",
		ResolvedURL: "https://www.youtube.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	require.Len(t, *opened, 1)
	assert.Equal(t, "https://www.youtube.com", (*opened)[0])
}

// A held base plus a pending search plus an enter key_combo
// synthesizes a templated search URL without a controlled browser.
func TestDegraded_EnterSynthesizesSearchURL(t *testing.T) {
	e, opened := newDegradedExecutor()
	e.deferActive = true
	e.deferredBase = "https://www.youtube.com"

	res, err := e.ExecuteStep(context.Background(), intent.Step{Intent: intent.TypeText, Target: intent.TargetWeb, Text: "lofi girl"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)

	res, err = e.ExecuteStep(context.Background(), intent.Step{Intent: intent.KeyCombo, Target: intent.TargetWeb, Keys: []string{"enter"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	require.Len(t, *opened, 1)
	assert.Equal(t, "https://www.youtube.com/search?q=lofi+girl", (*opened)[0])
	assert.False(t, e.deferActive)
}

func TestDegraded_EnterWithoutPendingSearchOpensBase(t *testing.T) {
	e, opened := newDegradedExecutor()
	e.deferActive = true
	e.deferredBase = "https://github.com"

	_, err := e.ExecuteStep(context.Background(), intent.Step{Intent: intent.KeyCombo, Target: intent.TargetWeb, Keys: []string{"return"}})
	require.NoError(t, err)
	require.Len(t, *opened, 1)
	assert.Equal(t, "https://github.com", (*opened)[0])
}

func TestDegraded_NoURLObtainableFailsResolution(t *testing.T) {
	e, _ := newDegradedExecutor()
	res, err := e.ExecuteStep(context.Background(), intent.Step{Intent: intent.OpenURL, Target: intent.TargetWeb, URL: "zzz unknown"})
	assert.Equal(t, "failed", res.Status)
	var wErr *WebExecutionError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, CodeResolutionFailed, wErr.Code)
}

// A metadata-service URL must never reach the system browser, even when it
// arrives precomputed.
func TestDegraded_UnsafeResolvedURLRejected(t *testing.T) {
	e, opened := newDegradedExecutor()
	res, err := e.ExecuteStep(context.Background(), intent.Step{
		Intent:      intent.OpenURL,
		Target:      intent.TargetWeb,
		URL:         "metadata",
		ResolvedURL: "http://169.254.169.254/",
	})
	assert.Equal(t, "failed", res.Status)
	var wErr *WebExecutionError
	require.ErrorAs(t, err, &wErr)
	assert.Equal(t, CodeUnsafeURL, wErr.Code)
	assert.Empty(t, *opened)
}
