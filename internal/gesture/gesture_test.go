package gesture

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFiles_StartsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "hotkeys.json"), filepath.Join(dir, "commands.json"))
	require.NoError(t, err)
	_, _, ok := s.Lookup("anything")
	assert.False(t, ok)
}

func TestSetCommand_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	hotkeyPath := filepath.Join(dir, "hotkeys.json")
	commandPath := filepath.Join(dir, "commands.json")

	s, err := Load(hotkeyPath, commandPath)
	require.NoError(t, err)

	require.NoError(t, s.SetCommand("swipe_left", CannedCommand{
		CommandText: "go back",
		ValidatedSteps: []map[string]any{
			{"intent": "key_combo", "keys": []any{"alt", "left"}},
		},
	}))

	text, steps, ok := s.Lookup("swipe_left")
	require.True(t, ok)
	assert.Equal(t, "go back", text)
	require.Len(t, steps, 1)

	reloaded, err := Load(hotkeyPath, commandPath)
	require.NoError(t, err)
	text2, steps2, ok2 := reloaded.Lookup("swipe_left")
	require.True(t, ok2)
	assert.Equal(t, text, text2)
	assert.Len(t, steps2, len(steps))
}

func TestSetHotkey_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	hotkeyPath := filepath.Join(dir, "hotkeys.json")
	commandPath := filepath.Join(dir, "commands.json")

	s, err := Load(hotkeyPath, commandPath)
	require.NoError(t, err)
	require.NoError(t, s.SetHotkey("swipe_left", "ctrl+alt+l"))

	hk, ok := s.Hotkey("swipe_left")
	require.True(t, ok)
	assert.Equal(t, "ctrl+alt+l", hk)

	reloaded, err := Load(hotkeyPath, commandPath)
	require.NoError(t, err)
	hk2, ok2 := reloaded.Hotkey("swipe_left")
	require.True(t, ok2)
	assert.Equal(t, hk, hk2)
}

func TestLookup_UnknownLabel(t *testing.T) {
	s, err := Load("", "")
	require.NoError(t, err)
	_, _, ok := s.Lookup("nope")
	assert.False(t, ok)
}
