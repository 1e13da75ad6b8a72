// Copyright 2025 The AddrServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the address matching server and CLI [DBG] application.

AddrServe resolves free-form Russian addresses such as "ул. Дурова, 4" against a
reference gazetteer and returns the closest known addresses with coordinates and a
confidence score. It can operate as a MessagePack IPC server for integration with other
processes, or as a CLI application for testing and debugging.

# Usage

Start the server with default settings:

	addrserve

Use a custom dataset and enable debug mode:

	addrserve -data /path/to/moscow.csv -d

Run in CLI mode for interactive testing:

	addrserve -c -limit 5 -retriever token

The dataset is a ';' separated CSV (gazetteer dump or columnar), an .xlsx workbook or a
leveldb directory. With driver "postgres" in the config the address table is read instead.

# Configuration

Runtime configuration is managed through a TOML file that is created with defaults on
first start:

	[engine]
	locality = "Москва"
	top_n = 3
	retriever = "levenshtein"

	[store]
	driver = "file"
	path = "data/addresses.csv"

Every ADDRSERVE_* environment variable (ADDRSERVE_DSN, ADDRSERVE_LOCALITY, ...) overrides
the file, and command line flags override both.

# Command Line Flags

	-config string
	    Path to the TOML config file
	-data string
	    Dataset path for the file driver
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of matches to return
	-retriever string
	    levenshtein, token or vector
	-locality string
	    Locality assumed when a query names none

See package server for the IPC protocol.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/addrserve/internal/cli"
	"github.com/bastiangx/addrserve/internal/logger"
	"github.com/bastiangx/addrserve/internal/utils"
	"github.com/bastiangx/addrserve/pkg/config"
	"github.com/bastiangx/addrserve/pkg/dataset"
	"github.com/bastiangx/addrserve/pkg/server"
	"github.com/bastiangx/addrserve/pkg/service"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "addrserve"
	gh      = "https://github.com/bastiangx/addrserve"
)

// sigHandler runs cleanup and exits on SIGINT or SIGTERM.
func sigHandler(cleanup func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cleanup()
		os.Exit(0)
	}()
}

// main wires config, store, service and the chosen front end.
// It does not implement logic for them and only manages the flow.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to the TOML config file")
	dataPath := flag.String("data", "", "Dataset path for the file driver (.csv, .xlsx or leveldb dir)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Number of matches to return (default from config)")
	retriever := flag.String("retriever", "", "Candidate retriever: levenshtein, token or vector")
	locality := flag.String("locality", "", "Locality assumed when a query names none")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode, "")

	cfg, usedConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(usedConfig))

	if *dataPath != "" {
		cfg.Store.Driver = config.DriverFile
		cfg.Store.Path = *dataPath
	}
	if *retriever != "" {
		cfg.Engine.Retriever = *retriever
	}
	if *locality != "" {
		cfg.Engine.Locality = *locality
	}
	if *limit > 0 {
		cfg.Engine.TopN = *limit
		cfg.CLI.DefaultLimit = *limit
	}

	if cfg.Store.Driver == config.DriverFile {
		pathResolver, err := utils.NewPathResolver()
		if err != nil {
			log.Fatalf("Failed to initialize path resolver: %v", err)
		}
		cfg.Store.Path = pathResolver.GetDataPath(cfg.Store.Path, dataset.IsDataPath)
		log.Debug("Runtime info", "paths", pathResolver.GetRuntimeInfo())
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()
	st, err := dataset.Open(ctx, cfg.Store, cfg.Engine.Locality)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	svc, err := service.New(cfg, st)
	if err != nil {
		st.Close()
		log.Fatalf("Failed to init service: %v", err)
	}
	sigHandler(func() {
		if err := svc.Close(); err != nil {
			log.Errorf("Closing store: %v", err)
		}
	})

	if err := svc.Warm(ctx); err != nil {
		svc.Close()
		log.Fatalf("Failed to build address index: %v", err)
	}
	log.Debug("Index init done", "retriever", svc.Retriever(), "locality", svc.Locality())

	// CLI is mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(svc, os.Stdin, os.Stderr, cfg.CLI.DefaultLimit, cfg.Server.MaxQueryLen)
		err := inputHandler.Start(ctx)
		svc.Close()
		if err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(svc, cfg.Server, os.Stdin, os.Stdout)

	showStartupInfo(cfg)

	err = srv.Start(ctx)
	svc.Close()
	if err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func printVersion() {
	banner := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ AddrServe ] Matches messy addresses to real ones")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" AddrServe ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("store: ( %s )", describeStore(cfg.Store))
	log.Infof("retriever: %s, locality: %s", cfg.Engine.Retriever, cfg.Engine.Locality)
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}

func describeStore(s config.StoreConfig) string {
	if s.Driver == config.DriverPostgres {
		return "postgres"
	}
	return s.Path
}
