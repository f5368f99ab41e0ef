package confirm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handsfree/internal/intent"
)

func TestCreate_AssignsIDAndTracksPending(t *testing.T) {
	s := New()
	rec := s.Create(SourceVoice, "delete everything", "sensitive_text", []intent.Step{{Intent: intent.OpenApp, App: "Notes"}})

	require.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, s.Len())

	peeked, ok := s.Peek(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.RawText, peeked.RawText)
}

func TestTake_RemovesOnFirstCallOnly(t *testing.T) {
	s := New()
	rec := s.Create(SourceGesture, "rm -rf", "sensitive_text", nil)

	got, ok := s.Take(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 0, s.Len())

	_, ok = s.Take(rec.ID)
	assert.False(t, ok)
}

func TestTake_UnknownID(t *testing.T) {
	s := New()
	_, ok := s.Take("nope")
	assert.False(t, ok)
}

func TestClear_RemovesAllPending(t *testing.T) {
	s := New()
	s.Create(SourceVoice, "a", "r1", nil)
	s.Create(SourceVoice, "b", "r2", nil)
	require.Equal(t, 2, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestCreate_ClonesStepsDefensively(t *testing.T) {
	s := New()
	steps := []intent.Step{{Intent: intent.OpenApp, App: "Notes"}}
	rec := s.Create(SourceVoice, "open notes", "", steps)

	steps[0].App = "mutated"
	got, _ := s.Peek(rec.ID)
	assert.Equal(t, "Notes", got.Steps[0].App)
}
