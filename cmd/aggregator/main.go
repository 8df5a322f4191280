// Command aggregator pulls dated inventory snapshot files from a
// SharePoint document library and consolidates them into one
// serial-number-keyed report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invcli/internal/auth"
	"invcli/internal/config"
	"invcli/internal/exporter"
	"invcli/internal/graph"
	"invcli/internal/infrastructure"
	"invcli/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	outFile := flag.String("out", "", "override the configured output file")
	skipInvalid := flag.Bool("skip-invalid", false, "skip unreadable or schema-invalid snapshots instead of aborting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *outFile != "" {
		cfg.Pipeline.OutputFile = *outFile
	}
	if *skipInvalid {
		cfg.Pipeline.SkipInvalidFiles = true
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureRunID(ctx)

	if err := run(ctx, logger, cfg); err != nil {
		logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	creds := auth.NewTokenProvider(cfg.Auth, auth.NewCacheStore(cfg.Auth.TokenCache), logger)
	client := graph.NewClient(cfg.Graph, creds, logger)
	sink := exporter.NewReportWriter(logger)

	orchestrator, err := pipeline.New(logger, client, client, creds, sink, pipeline.Options{
		FolderPath:          cfg.Graph.FolderPath,
		FilePattern:         cfg.Pipeline.FilePattern,
		SkipInvalidFiles:    cfg.Pipeline.SkipInvalidFiles,
		AllowDuplicateDates: cfg.Pipeline.AllowDuplicateDates,
		OutputFile:          cfg.Pipeline.OutputFile,
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting snapshot aggregation",
		slog.String("site", cfg.Graph.SiteURL),
		slog.String("library", cfg.Graph.LibraryName),
		slog.String("folder", cfg.Graph.FolderPath))

	stats, runErr := orchestrator.Run(ctx)

	// Statistics are reported even when the run aborted partway.
	printStats(stats)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return errors.New("run cancelled, no report written")
		}
		return runErr
	}
	return nil
}

func printStats(stats *pipeline.Stats) {
	fmt.Printf("\nRun %s\n", stats.RunID)
	fmt.Printf("  files discovered: %d\n", stats.FilesDiscovered)
	fmt.Printf("  files matched:    %d\n", stats.FilesMatched)
	fmt.Printf("  files processed:  %d\n", stats.FilesProcessed)
	fmt.Printf("  files skipped:    %d\n", stats.FilesSkipped)
	fmt.Printf("  rows dropped:     %d\n", stats.RowsDropped)
	fmt.Printf("  unique serials:   %d\n", stats.UniqueSerials)
	if stats.OutputLocation != "" {
		fmt.Printf("  report written:   %s\n", stats.OutputLocation)
	}
	fmt.Printf("  elapsed:          %s\n", stats.Elapsed.Round(time.Millisecond))
}
