// Package main runs exactly one survival cycle and exits. The exit code is 0
// when the cycle succeeded and 2 when it recorded a failed outcome.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"solana-survival-agent/internal/app"
	"solana-survival-agent/internal/domain"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGENT_CONFIG"), "YAML config file")
	asJSON := flag.Bool("json", false, "Print the outcome as JSON")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start agent")
		os.Exit(1)
	}

	// An interrupt cuts pending calls short; the outcome is still recorded.
	out := agent.Engine.RunCycle(ctx)
	agent.Close()

	if err := printOutcome(os.Stdout, out, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "print outcome: %v\n", err)
	}

	if !out.Success {
		closeLog()
		os.Exit(2)
	}
}

func printOutcome(w io.Writer, out domain.ActionOutcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	line := fmt.Sprintf("cycle %s: tier=%s action=%s success=%t", out.CycleID, out.Tier, out.ActionTaken, out.Success)
	if out.TransactionRef != "" {
		line += fmt.Sprintf(" tx=%s", out.TransactionRef)
	}
	if out.Error != "" {
		line += fmt.Sprintf(" error=%q", out.Error)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
