package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/meridianhq/portal/internal"
	"github.com/meridianhq/portal/internal/config"
	"github.com/meridianhq/portal/internal/log"
)

var BuildVersion = "dev"

func main() {
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting portal", map[string]any{
		"version": BuildVersion,
	})

	portal, err := internal.NewPortal(cfg, nil)
	if err != nil {
		log.LogError("Failed to create portal: %v", err)
		os.Exit(1)
	}

	if err := portal.Run(); err != nil {
		log.LogError("Failed to start server: %v", err)
		os.Exit(1)
	}
}
