package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handsfree/internal/intent"
)

// With a conjunction in the text, each subject starts its own group and
// StartIndex preserves execution order.
func TestGroupSubjects_PreservesOrderViaStartIndex(t *testing.T) {
	steps := []intent.Step{
		{Intent: intent.OpenApp, App: "notes"},
		{Intent: intent.TypeText, Text: "hello"},
		{Intent: intent.OpenURL, URL: "https://example.com"},
		{Intent: intent.KeyCombo, Keys: []string{"enter"}},
	}
	groups := GroupSubjects("open notes and type hello then open example", steps)
	require.Len(t, groups, 2)

	assert.Equal(t, "notes", groups[0].Subject)
	assert.Equal(t, "app", groups[0].Type)
	assert.Equal(t, 0, groups[0].StartIndex)
	assert.Len(t, groups[0].Steps, 2)

	assert.Equal(t, "example.com", groups[1].Subject)
	assert.Equal(t, "url", groups[1].Type)
	assert.Equal(t, 2, groups[1].StartIndex)
	assert.Len(t, groups[1].Steps, 2)

	assert.Less(t, groups[0].StartIndex, groups[1].StartIndex)
}

// Without a conjunction, a second subject in the step list does not split
// the command.
func TestGroupSubjects_NoConjunction_SingleGroup(t *testing.T) {
	steps := []intent.Step{
		{Intent: intent.OpenApp, App: "notes"},
		{Intent: intent.TypeText, Text: "hello"},
		{Intent: intent.OpenFile, Path: "/tmp/x"},
	}
	groups := GroupSubjects("open notes type hello open that file", steps)
	require.Len(t, groups, 1)
	assert.Equal(t, "notes", groups[0].Subject)
	assert.Equal(t, 0, groups[0].StartIndex)
	assert.Len(t, groups[0].Steps, 3)
}

// A leading step with no subject of its own rides with the first subject's
// group, keeping StartIndex at the true first step.
func TestGroupSubjects_LeadingStepJoinsFirstSubject(t *testing.T) {
	steps := []intent.Step{
		{Intent: intent.KeyCombo, Keys: []string{"command", "space"}},
		{Intent: intent.OpenApp, App: "mail"},
		{Intent: intent.OpenApp, App: "notes"},
	}
	groups := GroupSubjects("spotlight then mail and notes", steps)
	require.Len(t, groups, 2)
	assert.Equal(t, "mail", groups[0].Subject)
	assert.Equal(t, 0, groups[0].StartIndex)
	assert.Len(t, groups[0].Steps, 2)
	assert.Equal(t, "notes", groups[1].Subject)
	assert.Equal(t, 2, groups[1].StartIndex)
}

// A message send groups under its contact.
func TestGroupSubjects_MessageContactIsSubject(t *testing.T) {
	steps := []intent.Step{
		{Intent: intent.OpenURL, URL: "https://web.whatsapp.com"},
		{Intent: intent.WebSendMessage, Contact: "Alice", Message: "hi"},
	}
	groups := GroupSubjects("open whatsapp and tell Alice hi", steps)
	require.Len(t, groups, 2)
	assert.Equal(t, "web.whatsapp.com", groups[0].Subject)
	assert.Equal(t, "Alice", groups[1].Subject)
	assert.Equal(t, 1, groups[1].StartIndex)
}

func TestGroupSubjects_Empty(t *testing.T) {
	assert.Nil(t, GroupSubjects("anything and everything", nil))
}
