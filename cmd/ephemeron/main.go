package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/tailored-agentic-units/ephemeron/observability"
	"github.com/tailored-agentic-units/ephemeron/weakmap"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to weak map config file (JSON or YAML)")
		observer   = flag.String("observer", "", "Registered observer name (overrides config)")
		keys       = flag.Int("keys", 1000, "Number of object keys to associate")
		dropEvery  = flag.Int("drop-every", 2, "Drop every Nth key before collecting")
		timeout    = flag.Duration("timeout", 5*time.Second, "Maximum time to wait for reclamation")
		metrics    = flag.Bool("metrics", false, "Print event counters in Prometheus text format")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *keys <= 0 || *dropEvery <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: ephemeron [-config <file>] [-keys N] [-drop-every N]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	cfg := weakmap.DefaultConfig()
	if *configFile != "" {
		loaded, err := weakmap.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *observer != "" {
		cfg.Observer = *observer
	}

	obs, err := eventObserver(cfg.Observer)
	if err != nil {
		log.Fatalf("Failed to resolve observer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	rep, err := runScenario(ctx, scenario{
		config:    cfg,
		keys:      *keys,
		dropEvery: *dropEvery,
		options:   []weakmap.Option{weakmap.WithObserver(obs)},
	})
	if err != nil {
		log.Fatalf("Scenario failed: %v", err)
	}

	fmt.Printf("Keys associated:        %d\n", rep.keys)
	fmt.Printf("Keys dropped:           %d\n", rep.dropped)
	fmt.Printf("Dropped keys reclaimed: %d\n", rep.reclaimedKeys)
	fmt.Printf("Kept keys retrievable:  %d\n", rep.retrievable)
	fmt.Printf("Map reclaimed:          %v\n", rep.mapReclaimed)
	fmt.Printf("Entries purged:         %d\n", rep.purgedEntries)

	if *metrics {
		fmt.Println()
		if err := observability.DefaultMetrics.WriteText(os.Stdout); err != nil {
			log.Fatalf("Failed to write metrics: %v", err)
		}
	}
}
