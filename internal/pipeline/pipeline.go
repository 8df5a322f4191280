// Package pipeline sequences the snapshot aggregation run: list,
// match, order, fetch, parse, fold, and a single hand-off to the
// report sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"invcli/internal/aggregate"
	"invcli/internal/errs"
	"invcli/internal/infrastructure"
	"invcli/internal/snapshot"
)

// RemoteFile is one entry from a folder listing.
type RemoteFile struct {
	Name     string
	RemoteID string
}

// Lister lists the files in a remote folder.
type Lister interface {
	List(ctx context.Context, folderPath string) ([]RemoteFile, error)
}

// Fetcher downloads one remote file's raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, remoteID string) ([]byte, error)
}

// CredentialProvider supplies the bearer credential the remote
// collaborators authenticate with. Invalidate discards any cached
// credential so the next Acquire refreshes it.
type CredentialProvider interface {
	Acquire(ctx context.Context) (string, error)
	Invalidate()
}

// Sink receives the finished aggregate. It is invoked exactly once per
// successful run, never with partial data.
type Sink interface {
	Write(ctx context.Context, inv *aggregate.Inventory, location string) error
}

// Options is the pipeline's configuration surface.
type Options struct {
	FolderPath          string
	FilePattern         string
	SkipInvalidFiles    bool
	AllowDuplicateDates bool
	OutputFile          string
}

// Stats summarizes one run. It is reported even when the run fails
// partway.
type Stats struct {
	RunID           string
	FilesDiscovered int
	FilesMatched    int
	FilesProcessed  int
	FilesSkipped    int
	RowsDropped     int
	UniqueSerials   int
	OutputLocation  string
	Elapsed         time.Duration
}

// Orchestrator runs the aggregation pipeline against injected
// collaborators. Processing is strictly sequential: fold order is a
// correctness invariant, so snapshots are never fetched concurrently.
type Orchestrator struct {
	logger  *slog.Logger
	matcher *snapshot.Matcher
	lister  Lister
	fetcher Fetcher
	creds   CredentialProvider
	sink    Sink
	opts    Options
}

// New builds an orchestrator, compiling the filename pattern up front
// so a bad pattern fails before any remote call.
func New(logger *slog.Logger, lister Lister, fetcher Fetcher, creds CredentialProvider, sink Sink, opts Options) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matcher, err := snapshot.NewMatcher(opts.FilePattern)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		logger:  logger,
		matcher: matcher,
		lister:  lister,
		fetcher: fetcher,
		creds:   creds,
		sink:    sink,
		opts:    opts,
	}, nil
}

// Run executes the pipeline. The returned Stats is non-nil in every
// case; err is non-nil when the run aborted before the sink was
// invoked.
func (o *Orchestrator) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RunID: infrastructure.GetRunID(ctx)}
	defer func() { stats.Elapsed = time.Since(start) }()

	files, err := o.lister.List(ctx, o.opts.FolderPath)
	if err != nil {
		return stats, fmt.Errorf("listing folder %s: %w", o.opts.FolderPath, err)
	}
	stats.FilesDiscovered = len(files)

	refs, err := o.matchFiles(ctx, files)
	if err != nil {
		return stats, err
	}
	stats.FilesMatched = len(refs)

	ordered, duplicates, err := snapshot.Order(refs, o.opts.AllowDuplicateDates)
	if err != nil {
		return stats, err
	}
	for _, dup := range duplicates {
		o.logger.WarnContext(ctx, "skipping duplicate-date snapshot",
			slog.String("file", dup.Name),
			slog.String("date", dup.Date.Format(snapshot.DateLayout)))
		stats.FilesSkipped++
	}

	engine := aggregate.NewEngine(o.logger)
	for _, ref := range ordered {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := o.processSnapshot(ctx, engine, ref, stats); err != nil {
			return stats, err
		}
	}

	inv := engine.Inventory()
	stats.UniqueSerials = inv.Len()

	// Cancellation must leave nothing written: the sink sees the
	// complete aggregate or is never called.
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if err := o.sink.Write(ctx, inv, o.opts.OutputFile); err != nil {
		return stats, fmt.Errorf("writing report to %s: %w", o.opts.OutputFile, err)
	}
	stats.OutputLocation = o.opts.OutputFile

	o.logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("files_discovered", stats.FilesDiscovered),
		slog.Int("files_processed", stats.FilesProcessed),
		slog.Int("files_skipped", stats.FilesSkipped),
		slog.Int("rows_dropped", stats.RowsDropped),
		slog.Int("unique_serials", stats.UniqueSerials),
		slog.String("output", stats.OutputLocation))

	return stats, nil
}

// matchFiles classifies the listing against the filename pattern. A
// non-matching name is excluded silently; a matching name with an
// unparseable date aborts the run.
func (o *Orchestrator) matchFiles(ctx context.Context, files []RemoteFile) ([]snapshot.Reference, error) {
	var refs []snapshot.Reference
	for _, f := range files {
		date, matched, err := o.matcher.Match(f.Name)
		if err != nil {
			return nil, err
		}
		if !matched {
			o.logger.DebugContext(ctx, "file does not match snapshot pattern",
				slog.String("file", f.Name))
			continue
		}
		refs = append(refs, snapshot.Reference{Name: f.Name, Date: date, RemoteID: f.RemoteID})
	}
	return refs, nil
}

// processSnapshot fetches, parses, and folds one snapshot, applying
// the skip-invalid policy.
func (o *Orchestrator) processSnapshot(ctx context.Context, engine *aggregate.Engine, ref snapshot.Reference, stats *Stats) error {
	raw, err := o.fetchWithAuthRetry(ctx, ref.RemoteID)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", ref.Name, err)
	}

	table, err := snapshot.Parse(ref.Name, raw)
	if err != nil {
		pf, ok := errs.IsParseFailure(err)
		if ok && o.opts.SkipInvalidFiles {
			o.logger.WarnContext(ctx, "skipping invalid snapshot",
				slog.String("file", pf.File),
				slog.String("kind", string(pf.Kind)),
				slog.String("reason", pf.Reason))
			stats.FilesSkipped++
			return nil
		}
		return err
	}

	if table.Dropped > 0 {
		o.logger.WarnContext(ctx, "dropped rows with empty SN",
			slog.String("file", ref.Name),
			slog.Int("rows", table.Dropped))
		stats.RowsDropped += table.Dropped
	}

	engine.Fold(ctx, ref.Date, table)
	stats.FilesProcessed++
	return nil
}

// fetchWithAuthRetry downloads one file, retrying exactly once with a
// freshly acquired credential when the failure is an auth error.
func (o *Orchestrator) fetchWithAuthRetry(ctx context.Context, remoteID string) ([]byte, error) {
	raw, err := o.fetcher.Fetch(ctx, remoteID)
	if err == nil || !errs.IsAuth(err) {
		return raw, err
	}

	o.logger.WarnContext(ctx, "fetch failed with auth error, refreshing credential",
		slog.String("remote_id", remoteID),
		slog.String("error", err.Error()))

	o.creds.Invalidate()
	if _, aerr := o.creds.Acquire(ctx); aerr != nil {
		return nil, aerr
	}
	return o.fetcher.Fetch(ctx, remoteID)
}
