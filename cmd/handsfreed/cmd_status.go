package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the engine's last-result snapshot and controller metrics",
	RunE:  runStatus,
}

type statusReport struct {
	LastResult any `json:"last_result"`
	Metrics    any `json:"metrics"`
	Pending    any `json:"pending"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := buildServices()
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer svc.Close()

	report := statusReport{
		LastResult: svc.eng.LastResult(),
		Metrics:    svc.ctrl.GetMetrics(),
		Pending:    svc.eng.ListPending(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
