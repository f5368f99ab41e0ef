// Package gesture persists the two per-user gesture-label documents: a
// gesture_label -> hotkey map, and a
// gesture_label -> canned-command map. Both are rewritten atomically via
// internal/config's write-temp-then-rename helper.
package gesture

import (
	"encoding/json"
	"os"
	"sync"

	"handsfree/internal/config"
	"handsfree/internal/logging"
)

// HotkeyBinding is the optional hotkey document entry.
type HotkeyBinding struct {
	Hotkey string `json:"hotkey"`
}

// CannedCommand is the canned-command document entry: a
// gesture's default free text plus optional pre-validated steps and
// resolved-URL memoization so a repeated gesture doesn't re-resolve.
type CannedCommand struct {
	CommandText      string           `json:"command_text"`
	ValidatedSteps   []map[string]any `json:"validated_steps,omitempty"`
	ResolvedURL      string           `json:"resolved_url,omitempty"`
	ResolvedBaseURL  string           `json:"resolved_base_url,omitempty"`
}

// Store holds both documents in memory, persisted to two JSON files.
type Store struct {
	mu sync.RWMutex

	hotkeyPath  string
	commandPath string

	hotkeys  map[string]HotkeyBinding
	commands map[string]CannedCommand
}

// Load reads both documents from disk, tolerating either file being
// absent (starts empty, the way internal/config.Load tolerates a missing
// config file).
func Load(hotkeyPath, commandPath string) (*Store, error) {
	s := &Store{
		hotkeyPath:  hotkeyPath,
		commandPath: commandPath,
		hotkeys:     make(map[string]HotkeyBinding),
		commands:    make(map[string]CannedCommand),
	}
	if err := loadJSON(hotkeyPath, &s.hotkeys); err != nil {
		return nil, err
	}
	if err := loadJSON(commandPath, &s.commands); err != nil {
		return nil, err
	}
	return s, nil
}

func loadJSON(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

// Lookup implements controller.GestureLookup: resolves a gesture label to
// its configured text and optional pre-validated step list.
func (s *Store) Lookup(label string) (text string, steps []map[string]any, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmd, found := s.commands[label]
	if !found {
		return "", nil, false
	}
	return cmd.CommandText, cmd.ValidatedSteps, true
}

// SetCommand upserts a gesture's canned command and persists the document.
func (s *Store) SetCommand(label string, cmd CannedCommand) error {
	s.mu.Lock()
	s.commands[label] = cmd
	snapshot := cloneCommands(s.commands)
	s.mu.Unlock()
	logging.Gesture("set canned command for %q", label)
	return s.saveCommands(snapshot)
}

// SetHotkey upserts a gesture's hotkey binding and persists the document.
func (s *Store) SetHotkey(label, hotkey string) error {
	s.mu.Lock()
	s.hotkeys[label] = HotkeyBinding{Hotkey: hotkey}
	snapshot := cloneHotkeys(s.hotkeys)
	s.mu.Unlock()
	logging.Gesture("set hotkey for %q", label)
	return s.saveHotkeys(snapshot)
}

// Hotkey returns the configured hotkey for a gesture label, if any.
func (s *Store) Hotkey(label string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hotkeys[label]
	if !ok {
		return "", false
	}
	return h.Hotkey, true
}

func (s *Store) saveCommands(m map[string]CannedCommand) error {
	if s.commandPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return config.AtomicWriteFile(s.commandPath, data)
}

func (s *Store) saveHotkeys(m map[string]HotkeyBinding) error {
	if s.hotkeyPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return config.AtomicWriteFile(s.hotkeyPath, data)
}

func cloneCommands(m map[string]CannedCommand) map[string]CannedCommand {
	out := make(map[string]CannedCommand, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneHotkeys(m map[string]HotkeyBinding) map[string]HotkeyBinding {
	out := make(map[string]HotkeyBinding, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
