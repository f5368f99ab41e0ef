package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"handsfree/internal/confirm"
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Run a single voice command through the engine and print the result",
	Long: `say builds a fresh service graph, runs one command through the
engine as a voice event, and prints the last-result snapshot. It is a
one-shot convenience for testing a phrase without a running serve
process; the engine keeps no cross-process state, so this does not talk
to an already-running "serve".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func runSay(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	svc, err := buildServices()
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	res := svc.eng.Run(ctx, confirm.SourceVoice, text, nil)
	return printResult(res)
}

func printResult(res any) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
