/*
Emitter entry point for the learning-events pipeline.

Plays simulated learner sessions through the event logger and ships the
events to the collector.
Build: go build -o emitter ./cmd/emitter
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/internal/emitter"
	"github.com/agbruneau/learning-events/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("LEARNLOG_CONFIG"), "YAML or TOML configuration file")
	replay := flag.Bool("replay", false, "re-send the dead-letter spool and exit")
	flag.Parse()

	// Load configuration
	appCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Fatal error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(appCfg.App.LogFormat, logging.ParseLevel(appCfg.App.LogLevel))
	cfg := emitter.NewConfig(appCfg)

	if *replay {
		os.Exit(runReplay(cfg))
	}

	// Create and initialize the emitter
	em := emitter.New(cfg)
	if err := em.Initialize(context.Background()); err != nil {
		fmt.Printf("Fatal error during initialization: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🟢 Emitter is started and ready to simulate sessions...")
	fmt.Printf("📤 Sending to %s via %s\n", target(cfg), cfg.Transport)

	// Handle stop signals
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	// Start the simulation loop
	em.Run(sigchan)

	fmt.Println("⏳ Delivering remaining events...")
	if err := em.Close(); err != nil {
		fmt.Printf("⚠️  %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ %d sessions simulated, all events delivered or spooled.\n", em.Sessions())
}

// runReplay re-sends the spool and removes it once every batch was delivered.
func runReplay(cfg *emitter.Config) int {
	sink, closeSink, err := emitter.NewSink(cfg)
	if err != nil {
		fmt.Printf("Fatal error creating sink: %v\n", err)
		return 1
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := emitter.Replay(ctx, sink, cfg.DeadLetterFile, cfg.Retry)
	fmt.Printf("📤 Replayed %d events in %d batches from %s\n", res.Events, res.Batches, cfg.DeadLetterFile)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return 1
	}
	if res.Batches > 0 {
		if err := os.Remove(cfg.DeadLetterFile); err != nil {
			fmt.Printf("⚠️  Unable to remove spool: %v\n", err)
		}
	}
	return 0
}

func target(cfg *emitter.Config) string {
	if cfg.Transport == "kafka" {
		return cfg.KafkaBroker + "/" + cfg.KafkaTopic
	}
	return cfg.Endpoint
}
