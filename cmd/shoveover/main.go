package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skgchp/shoveover/internal/adapter/filesystem"
	"github.com/skgchp/shoveover/internal/adapter/sqlite"
	"github.com/skgchp/shoveover/internal/config"
	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/lock"
	"github.com/skgchp/shoveover/internal/logger"
	"github.com/skgchp/shoveover/internal/notify"
	"github.com/skgchp/shoveover/internal/port"
	"github.com/skgchp/shoveover/internal/scanner"
	"github.com/skgchp/shoveover/internal/service/migrator"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/shoveover/config.yaml", "Path to configuration file")
	checkOnly := flag.Bool("check", false, "Validate configuration and exit without scanning or moving")
	dryRun := flag.Bool("dry-run", false, "Scan and select but make no filesystem changes")
	debug := flag.Bool("debug", false, "Enable debug-level logging")
	showHistory := flag.Int("show-history", 0, "Print the N most recent runs from the history database and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("shoveover %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *checkOnly {
		fmt.Printf("configuration ok: %d mapping(s)\n", len(cfg.Mappings))
		os.Exit(0)
	}

	// Initialize logger
	level := cfg.Logging.Level
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.Format, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()

	// Open history store if configured
	var history *sqlite.HistoryStore
	if cfg.History.Path != "" {
		history, err = sqlite.Open(cfg.History.Path)
		if err != nil {
			zapLogger.Fatal("failed to open history database",
				zap.Error(err),
				zap.String("path", cfg.History.Path))
		}
		defer history.Close()
	}

	if *showHistory > 0 {
		if history == nil {
			fmt.Fprintln(os.Stderr, "no history database configured (history.path is empty)")
			os.Exit(1)
		}
		runs, err := history.RecentRuns(*showHistory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read history: %v\n", err)
			os.Exit(1)
		}
		for _, r := range runs {
			fmt.Println(r)
			for _, p := range r.MovedPaths {
				fmt.Printf("  moved %s\n", p)
			}
		}
		os.Exit(0)
	}

	zapLogger.Info("starting shoveover",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.Int("mappings", len(cfg.Mappings)),
		zap.Bool("dry_run", *dryRun || cfg.Run.DryRun))

	// Wire up the migration loop
	var policy port.StalePolicy
	switch cfg.Lock.StalePolicy {
	case "refuse":
		policy = lock.NewRefusePolicy(zapLogger)
	default:
		policy = lock.NewTerminatePolicy(zapLogger)
	}

	guard := lock.New(cfg.Lock.Path, cfg.Lock.GetStaleTimeout(), policy, zapLogger)

	leafScanner := scanner.New(&scanner.Config{
		MinAgeDays: cfg.Run.MinAgeDays,
		MaxDepth:   cfg.Run.MaxDepth,
	}, zapLogger)

	selector := migrator.NewSelector(leafScanner, zapLogger)
	engine := migrator.NewTransferEngine(*dryRun || cfg.Run.DryRun, nil, zapLogger)

	logTarget := cfg.Logging.File
	if logTarget == "" {
		logTarget = "stderr"
	}

	loop := migrator.New(&migrator.Config{
		LowFreePercent:    cfg.Space.LowFreePercent,
		TargetFreePercent: cfg.Space.TargetFreePercent,
		MaxMoves:          cfg.Run.MaxMoves,
		DryRun:            *dryRun || cfg.Run.DryRun,
		LogTarget:         logTarget,
	},
		cfg.DomainMappings(),
		filesystem.NewMonitor(),
		selector,
		engine,
		guard,
		zapLogger,
	).
		WithNotifier(notify.NewLogNotifier(zapLogger)).
		WithMonitor(notify.NewSession(zapLogger)).
		WithLogTail(logger.RecentLines)
	if history != nil {
		loop = loop.WithHistory(history)
	}

	// Interrupt between top-level steps; cleanup still runs inside Run
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := loop.Run(ctx)
	if err != nil {
		var already *domain.AlreadyRunningError
		if errors.As(err, &already) {
			zapLogger.Warn("run skipped", zap.Error(err))
		}
		os.Exit(1)
	}

	zapLogger.Info("shoveover finished",
		zap.Int("moved", summary.MovedCount),
		zap.Int64("total_freed_kb", summary.TotalFreedKB),
		zap.Int("final_free_pct", summary.FinalFreePct))
}
