// Package main renders the mission report from the audit trail.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"solana-survival-agent/internal/app"
	"solana-survival-agent/internal/journal"
	"solana-survival-agent/internal/reporting"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGENT_CONFIG"), "YAML config file")
	outputDir := flag.String("output-dir", "", "Write REPORT.md and outcomes.csv here instead of stdout")
	limit := flag.Int("limit", reporting.DefaultLimit, "Number of recent cycles and tributes to include")
	tail := flag.Int("tail", 0, "Print the last N mission log entries instead of a report")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if *tail > 0 {
		entries, err := journal.Tail(cfg.MissionLogPath(), *tail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading mission log: %v\n", err)
			os.Exit(1)
		}
		for _, e := range entries {
			fmt.Printf("%s %-8s %s\n", e.Time.UTC().Format(time.RFC3339), e.Kind, describe(e))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	report, err := reporting.NewGenerator(stores.Outcomes, stores.Tributes).WithLimit(*limit).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	md := reporting.RenderMarkdown(report)
	if *outputDir == "" {
		fmt.Print(md)
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	files := map[string]string{
		"REPORT.md":    md,
		"outcomes.csv": reporting.RenderCSV(report.Outcomes),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated: %s\n", path)
	}
}

func describe(e journal.Entry) string {
	switch {
	case e.Outcome != nil:
		o := e.Outcome
		s := fmt.Sprintf("cycle=%s tier=%s action=%s success=%t native=%s stable=%s",
			o.CycleID, o.Tier, o.ActionTaken, o.Success, o.Snapshot.Native, o.Snapshot.Stable)
		if o.TransactionRef != "" {
			s += " tx=" + o.TransactionRef
		}
		if o.Error != "" {
			s += fmt.Sprintf(" error=%q", o.Error)
		}
		return s
	case e.Tribute != nil:
		t := e.Tribute
		return fmt.Sprintf("amount=%s to=%s status=%s tx=%s", t.Amount, t.Recipient, t.Status, t.Signature)
	}
	return ""
}
