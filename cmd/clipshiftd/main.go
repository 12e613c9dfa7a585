package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"clipshift/internal/config"
	"clipshift/internal/daemon"
	"clipshift/internal/daemonrun"
	"clipshift/internal/logging"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "configuration file path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("clipshiftd " + version)
		return
	}

	// Secrets like upload.client_secret can live in a local .env instead of
	// the config file.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, logger, version); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "clipshiftd: another instance is already running")
			os.Exit(1)
		}
		log.Fatalf("clipshiftd: %v", err)
	}
}
