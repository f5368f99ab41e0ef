package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"handsfree/internal/gesture"
)

var gesturesCmd = &cobra.Command{
	Use:   "gestures",
	Short: "Manage gesture-label hotkey and canned-command bindings",
}

var gesturesSetCommandCmd = &cobra.Command{
	Use:   "set-command <label> <text>",
	Short: "Bind a gesture label to free-text command it should run",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGesturesSetCommand,
}

var gesturesSetHotkeyCmd = &cobra.Command{
	Use:   "set-hotkey <label> <hotkey>",
	Short: "Bind a gesture label to a hotkey string",
	Args:  cobra.ExactArgs(2),
	RunE:  runGesturesSetHotkey,
}

var gesturesShowCmd = &cobra.Command{
	Use:   "show <label>",
	Short: "Print the configured command text and hotkey for a gesture label",
	Args:  cobra.ExactArgs(1),
	RunE:  runGesturesShow,
}

func init() {
	gesturesCmd.AddCommand(gesturesSetCommandCmd, gesturesSetHotkeyCmd, gesturesShowCmd)
}

func openGestureStore() (*gesture.Store, error) {
	ws := workspace
	return gesture.Load(
		filepath.Join(ws, ".handsfree", "hotkeys.json"),
		filepath.Join(ws, ".handsfree", "gestures.json"),
	)
}

func runGesturesSetCommand(cmd *cobra.Command, args []string) error {
	store, err := openGestureStore()
	if err != nil {
		return err
	}
	label, text := args[0], strings.Join(args[1:], " ")
	if err := store.SetCommand(label, gesture.CannedCommand{CommandText: text}); err != nil {
		return fmt.Errorf("set command for %q: %w", label, err)
	}
	fmt.Printf("bound %q -> %q\n", label, text)
	return nil
}

func runGesturesSetHotkey(cmd *cobra.Command, args []string) error {
	store, err := openGestureStore()
	if err != nil {
		return err
	}
	label, hotkey := args[0], args[1]
	if err := store.SetHotkey(label, hotkey); err != nil {
		return fmt.Errorf("set hotkey for %q: %w", label, err)
	}
	fmt.Printf("bound %q -> hotkey %q\n", label, hotkey)
	return nil
}

func runGesturesShow(cmd *cobra.Command, args []string) error {
	store, err := openGestureStore()
	if err != nil {
		return err
	}
	label := args[0]
	text, steps, ok := store.Lookup(label)
	hotkey, hasHotkey := store.Hotkey(label)

	out := map[string]any{"label": label, "found": ok}
	if ok {
		out["command_text"] = text
		out["validated_steps"] = steps
	}
	if hasHotkey {
		out["hotkey"] = hotkey
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
