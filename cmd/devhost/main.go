package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gravitas-games/invmirror/internal/config"
	"github.com/gravitas-games/invmirror/internal/devhost"
)

func main() {
	issue := flag.String("issue-token", "", "print a development token for this username and exit")
	flag.Parse()

	log.SetPrefix("[devhost] ")
	log.Println("Starting development host...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/devhost.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded from %s", configPath)

	fixture := devhost.SampleFixture()
	if cfg.DevHost.Fixture != "" {
		if fixture, err = devhost.LoadFixture(cfg.DevHost.Fixture); err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		log.Printf("Fixture loaded from %s", cfg.DevHost.Fixture)
	}

	srv, err := devhost.New(cfg.DevHost, fixture)
	if err != nil {
		log.Fatalf("Failed to create development host: %v", err)
	}

	if *issue != "" {
		token, err := srv.Validator().IssueToken(1, *issue, nil, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.DevHost.Server.Host, cfg.DevHost.Server.Port)
		log.Printf("Development host listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Development host stopped")
}
