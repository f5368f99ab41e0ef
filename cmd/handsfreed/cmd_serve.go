package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"handsfree/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the command-dispatch service: start the controller and block until shutdown",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := buildServices()
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer svc.Close()

	svc.ctrl.Start()
	fmt.Println("handsfreed serving. Press Ctrl+C to shut down.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Controller("shutdown signal received, stopping controller")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.ctrl.Stop(ctx); err != nil {
		logging.Controller("controller did not stop cleanly: %v", err)
	}
	return nil
}
