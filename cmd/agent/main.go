// Package main runs the survival agent: one cycle immediately, then one per
// heartbeat, with health endpoints and the optional token radar alongside.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-survival-agent/internal/app"
	"solana-survival-agent/internal/health"
	"solana-survival-agent/internal/logging"
	"solana-survival-agent/internal/radar"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGENT_CONFIG"), "YAML config file")
	httpAddr := flag.String("http-addr", "", "Health and metrics HTTP address (overrides config)")
	heartbeat := flag.Duration("heartbeat", 0, "Cycle interval (overrides config)")
	enableRadar := flag.Bool("radar", false, "Watch newly created tokens")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.Agent.HTTPAddr = *httpAddr
	}
	if *heartbeat > 0 {
		cfg.Agent.HeartbeatInterval = *heartbeat
	}
	if *enableRadar {
		cfg.Radar.Enabled = true
	}

	logger, closeLog, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agent, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start agent")
	}
	defer agent.Close()

	logger.Info().
		Str("address", agent.Identity.Address()).
		Str("rpc", cfg.Ledger.RPCURL).
		Str("storage", cfg.Storage.Backend).
		Bool("tribute", agent.Harvester.Enabled()).
		Bool("scanner", agent.Scanner != nil).
		Dur("heartbeat", cfg.Agent.HeartbeatInterval).
		Msg("agent starting")

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("interrupting the current cycle and shutting down")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("second signal, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	var rdr *radar.Radar
	if cfg.Radar.Enabled {
		rdr = app.NewRadar(cfg, agent.Scorer, logger)
		go func() {
			if err := rdr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("radar stopped")
			}
		}()
	}

	srv := startHTTPServer(cfg.Agent.HTTPAddr, agent, rdr, logger)

	run(ctx, agent, cfg.Agent.HeartbeatInterval)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	close(done)
	logger.Info().Msg("shutdown complete")
}

// run executes one cycle now and then one per interval until ctx is done.
// Cancelling ctx interrupts the cycle in flight; its outcome is still recorded,
// as ambiguous when a submitted transaction was not yet confirmed.
func run(ctx context.Context, agent *app.Agent, interval time.Duration) {
	agent.Engine.RunCycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			agent.Engine.RunCycle(ctx)
		}
	}
}

func startHTTPServer(addr string, agent *app.Agent, rdr *radar.Radar, logger zerolog.Logger) *http.Server {
	opts := health.Options{
		Ledger:     agent.Ledger,
		Aggregator: agent.Aggregator,
		Engine:     agent.Engine,
		Address:    agent.Identity.Address(),
		Logger:     logging.Component(logger, "http"),
	}
	if rdr != nil {
		opts.Radar = rdr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           health.New(opts).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return srv
}
