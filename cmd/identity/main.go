// Package main prints the agent's address and current balances, creating the
// identity on first run. Balances that cannot be read print as "unknown".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"solana-survival-agent/internal/app"
	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/identity"
	"solana-survival-agent/internal/logging"
	"solana-survival-agent/internal/oracle"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGENT_CONFIG"), "YAML config file")
	addressOnly := flag.Bool("address", false, "Print only the address")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	id, err := identity.Load(cfg.WalletPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "identity: %v\n", err)
		os.Exit(1)
	}
	if *addressOnly {
		fmt.Println(id.Address())
		return
	}

	fmt.Printf("Address: %s\n", id.Address())
	fmt.Printf("Wallet:  %s\n", id.Path())
	if id.Created() {
		fmt.Println("         (new identity created)")
	}

	logger := logging.New("error", zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
	orc, err := oracle.New(oracle.Options{
		RPC:            app.NewLedger(cfg),
		Owner:          id.Address(),
		StableMint:     cfg.Survival.StableMint,
		StableDecimals: cfg.Survival.StableDecimals,
		ReadTimeout:    cfg.Ledger.ReadTimeout,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "oracle: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Ledger.ReadTimeout+5*time.Second)
	defer cancel()
	snap := orc.Snapshot(ctx)

	fmt.Printf("SOL:     %s\n", snap.Native)
	fmt.Printf("USDC:    %s\n", snap.Stable)
	fmt.Printf("Tier:    %s\n", domain.Classify(snap, cfg.Thresholds()))
}
