package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/invmirror/internal/app"
	"github.com/gravitas-games/invmirror/internal/bridge"
	"github.com/gravitas-games/invmirror/internal/config"
	"github.com/gravitas-games/invmirror/internal/journal"
	"github.com/gravitas-games/invmirror/internal/transaction"
)

func main() {
	log.SetPrefix("[inventoryui] ")
	log.Println("Starting inventory UI core...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/inventoryui.yaml"
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("No config at %s, using defaults and environment", configPath)
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("Connecting to host at %s", cfg.Host.URL)
	conn, err := bridge.Dial(ctx, cfg.Host.URL, cfg.Host.Token)
	if err != nil {
		log.Fatalf("Failed to connect to host: %v", err)
	}

	b, err := bridge.New(conn, bridge.Options{Timeout: cfg.Bridge.RequestTimeout})
	if err != nil {
		log.Fatalf("Failed to create bridge: %v", err)
	}
	defer b.Close()

	var recorder transaction.Recorder
	if cfg.Journal.Enabled {
		tl := journal.NewTransactionLog(cfg.Journal.Dir)
		defer tl.Close()
		recorder = tl
		log.Printf("Journaling transactions to %s", cfg.Journal.Dir)
	}

	a := app.New(b, app.Options{
		TooltipDelay:   cfg.UI.TooltipDelay,
		HotbarDuration: cfg.UI.HotbarDuration,
		PendingTTL:     cfg.UI.PendingTTL,
		SweepInterval:  cfg.UI.SweepInterval,
		Journal:        recorder,
	})
	b.Start()

	go func() {
		select {
		case <-b.Done():
			log.Println("Host connection closed")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Event loop error: %v", err)
	}
	log.Println("Inventory UI core stopped")
}
