package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/fetcher"
	"github.com/nao1215/jokeimport/internal/model"
)

var (
	// ErrInvalidCount is returned when the requested count is negative or
	// above config.MaxPageSize.
	ErrInvalidCount = errors.New("count must be between 0 and 1000")

	// ErrNoSaver is returned by Import when the Importer has no Saver.
	ErrNoSaver = errors.New("importer has no saver")
)

// recordsCapHint caps the preallocated result capacity.
const recordsCapHint = 64

// Fetch stages reported to the Observer.
const (
	StageFetched      = "fetched"
	StageFetchFailed  = "fetch_failed"
	StageTimeout      = "timeout"
	StageDecodeFailed = "decode_failed"
)

// Fetcher retrieves one response body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Saver persists one record and reports the outcome.
type Saver interface {
	Save(ctx context.Context, rec model.JokeRecord) model.SaveResult
	NodeType() string
}

// Observer receives per-task and per-run events, typically for metrics.
type Observer interface {
	ObserveFetch(stage string)
	ObserveImport(report *model.ImportReport)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string)               {}
func (nopObserver) ObserveImport(*model.ImportReport) {}

// Importer runs import batches.
type Importer struct {
	fetcher     Fetcher
	saver       Saver
	concurrency int
	logger      *slog.Logger
	observer    Observer
}

// Option configures an Importer.
type Option func(*Importer)

// WithConcurrency sets the maximum number of in-flight fetches.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		im.logger = logger
	}
}

// WithObserver sets the observer notified of fetch outcomes and finished runs.
func WithObserver(o Observer) Option {
	return func(im *Importer) {
		im.observer = o
	}
}

// New creates an Importer. The saver may be nil when only RunImport is used.
func New(f Fetcher, saver Saver, opts ...Option) *Importer {
	im := &Importer{
		fetcher:     f,
		saver:       saver,
		concurrency: config.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.logger == nil {
		im.logger = slog.Default()
	}
	if im.observer == nil {
		im.observer = nopObserver{}
	}
	return im
}

// runStats counts task failures of one batch.
type runStats struct {
	concurrency  int
	fetchFailed  int
	decodeFailed int
}

// RunImport fetches count jokes from url and returns the decoded records in
// completion order. Per-task failures are logged and skipped; the error return
// is reserved for invalid arguments, which are rejected before any request.
func (im *Importer) RunImport(ctx context.Context, url string, count int) ([]model.JokeRecord, error) {
	records, _, err := im.run(ctx, url, count)
	return records, err
}

func (im *Importer) run(ctx context.Context, url string, count int) ([]model.JokeRecord, runStats, error) {
	if count < 0 || count > config.MaxPageSize {
		return nil, runStats{}, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	if err := config.ValidateAPIURL(url); err != nil {
		return nil, runStats{}, err
	}

	limit := min(im.concurrency, count)
	stats := runStats{concurrency: limit}
	records := make([]model.JokeRecord, 0, min(count, recordsCapHint))
	if count == 0 {
		return records, stats, nil
	}

	im.logger.Debug("starting import batch",
		"url", url,
		"count", count,
		"concurrency", limit,
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 1; i <= count; i++ {
		g.Go(func() error {
			outcome := im.fetchOne(gctx, url, i)
			if !outcome.Succeeded() {
				mu.Lock()
				stats.fetchFailed++
				mu.Unlock()
				return nil
			}

			rec, err := model.DecodeJoke(outcome.Body)
			if err != nil {
				im.observer.ObserveFetch(StageDecodeFailed)
				im.logger.Error(fmt.Sprintf("Import #%d failed: %s", i, err),
					"index", i,
					"stage", "decode",
				)
				mu.Lock()
				stats.decodeFailed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}

	// Tasks never return an error; Wait is only the join point.
	_ = g.Wait() //nolint:errcheck

	return records, stats, nil
}

// fetchOne performs task i and logs its failure.
func (im *Importer) fetchOne(ctx context.Context, url string, i int) model.FetchOutcome {
	body, err := im.fetcher.Fetch(ctx, url)
	if err != nil {
		stage := StageFetchFailed
		if fetcher.IsTimeout(err) {
			stage = StageTimeout
		}
		im.observer.ObserveFetch(stage)
		im.logger.Error(fmt.Sprintf("Import #%d failed: %s", i, err),
			"index", i,
			"stage", "fetch",
		)
		return model.FetchOutcome{Index: i, Err: err}
	}
	im.observer.ObserveFetch(StageFetched)
	return model.FetchOutcome{Index: i, Body: body}
}

// Import runs a batch and saves every decoded record through the Saver.
// The returned report is complete even when some items failed.
func (im *Importer) Import(ctx context.Context, req model.ImportRequest) (*model.ImportReport, error) {
	if im.saver == nil {
		return nil, ErrNoSaver
	}

	started := time.Now()
	records, stats, err := im.run(ctx, req.SourceURL, req.Count)
	if err != nil {
		return nil, err
	}

	report := &model.ImportReport{
		URL:          req.SourceURL,
		NodeType:     im.saver.NodeType(),
		Requested:    req.Count,
		Concurrency:  stats.concurrency,
		Fetched:      len(records),
		FetchFailed:  stats.fetchFailed,
		DecodeFailed: stats.decodeFailed,
		StartedAt:    started,
		Records:      make([]model.SaveResult, 0, len(records)),
	}
	for _, rec := range records {
		report.Add(im.saver.Save(ctx, rec))
	}
	report.Duration = time.Since(started)

	im.logger.Info(report.Summary(),
		"saved", report.Saved,
		"requested", report.Requested,
		"fetch_failed", report.FetchFailed,
		"decode_failed", report.DecodeFailed,
		"invalid", report.Invalid,
		"store_failed", report.StoreFailed,
		"elapsed", report.Duration,
	)
	im.observer.ObserveImport(report)

	return report, nil
}
