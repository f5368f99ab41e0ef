package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending confirmation and execute its stored steps",
	Long: `approve(id) removes the confirmation record and executes its
stored step list. Confirmation records live only in the
memory of the process that created them -- this subcommand is only useful
when it shares a process with whatever created the confirmation, e.g.
invoked from the same embedding that calls engine.Run directly.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

var denyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny a pending confirmation without executing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeny,
}

func runApprove(cmd *cobra.Command, args []string) error {
	svc, err := buildServices()
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer svc.Close()

	res := svc.eng.Approve(context.Background(), args[0])
	return printResult(res)
}

func runDeny(cmd *cobra.Command, args []string) error {
	svc, err := buildServices()
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer svc.Close()

	res := svc.eng.Deny(args[0])
	return printResult(res)
}
