// Command stickerd runs the sticker catalog server: blob storage, metadata
// store, enrichment pipeline, and the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/internal/telemetry"
	"github.com/marmos91/stickerd/pkg/api"
	"github.com/marmos91/stickerd/pkg/api/handlers"
	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/catalog/store"
	"github.com/marmos91/stickerd/pkg/config"
	"github.com/marmos91/stickerd/pkg/enrich"
	"github.com/marmos91/stickerd/pkg/metrics"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `stickerd - Sticker catalog with AI enrichment

Usage:
  stickerd <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the stickerd server
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/stickerd/config.yaml)
  --force            Force overwrite existing config file (init command only)

Examples:
  # Initialize config file
  stickerd init

  # Start server with default config location
  stickerd start

  # Start server with custom config
  stickerd start --config /etc/stickerd/config.yaml

  # Use environment variables to override config
  STICKERD_LOGGING_LEVEL=DEBUG stickerd start

Environment Variables:
  All configuration options can be overridden using environment variables.
  Format: STICKERD_<SECTION>_<KEY> (use underscores for nested keys)

  Examples:
    STICKERD_LOGGING_LEVEL=DEBUG
    STICKERD_API_PORT=9000
    STICKERD_STORAGE_PATH=/var/lib/stickerd/images
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "start":
		runStart()
	case "version":
		fmt.Printf("stickerd %s (commit %s, built %s)\n", version, commit, date)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// runInit handles the init subcommand.
func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/stickerd/config.yaml)")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")

	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	var configPath string
	var err error
	if *configFile != "" {
		err = config.InitConfigToPath(*configFile, *force)
		configPath = *configFile
	} else {
		configPath, err = config.InitConfig(*force)
	}
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: stickerd start")
	fmt.Printf("  3. Or specify custom config: stickerd start --config %s\n", configPath)
}

// runStart handles the start subcommand.
func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/stickerd/config.yaml)")

	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.MustLoad(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry and profiling come up before anything that might trace.
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "stickerd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "stickerd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		log.Fatalf("Failed to initialize profiling: %v", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", "error", err)
		}
	}()

	// Metrics registry first, so every later constructor sees it enabled.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled")
	}
	pipelineMetrics := metrics.NewPipelineMetrics()
	httpMetrics := metrics.NewHTTPMetrics()

	st, err := store.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open metadata store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Metadata store close error", "error", err)
		}
	}()

	blobs, err := config.BuildBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	visionClient := config.BuildVisionClient(cfg)
	if visionClient == nil {
		logger.Info("Vision client disabled, images will not be enriched")
	}

	cat := catalog.New(st, blobs, visionClient, config.CatalogOptions(cfg))
	cat.SetMetrics(pipelineMetrics)
	if err := cat.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize catalog: %v", err)
	}

	var worker *enrich.Worker
	if cfg.Catalog.PersistTasksEnabled() && visionClient != nil {
		worker = enrich.NewWorker(cat, visionClient, pipelineMetrics, cfg.Worker)
		if err := worker.Start(ctx); err != nil {
			log.Fatalf("Failed to start enrichment worker: %v", err)
		}
	}

	var watcher *catalog.Watcher
	if cfg.Catalog.WatchFolder != "" {
		watcher = catalog.NewWatcher(cat, cfg.Catalog.WatchFolder, cfg.Catalog.AutoAnalyzeEnabled())
		if err := watcher.Start(ctx); err != nil {
			log.Fatalf("Failed to start folder watcher: %v", err)
		}
	}

	serverDone := make(chan error, 1)
	if cfg.API.IsEnabled() {
		var workerControl handlers.WorkerControl
		if worker != nil {
			workerControl = worker
		}
		router := api.NewRouter(cfg.API, cat, workerControl, httpMetrics)
		server := api.NewServer(cfg.API, router)
		go func() {
			serverDone <- server.Start(ctx)
		}()
	} else {
		logger.Info("API server disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("stickerd is running. Press Ctrl+C to stop.", "version", version)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("API server error", "error", err)
		}
		cancel()
	}

	if watcher != nil {
		watcher.Stop()
	}
	if worker != nil {
		worker.Stop(cfg.ShutdownTimeout)
	}
	logger.Info("stickerd stopped")
}
