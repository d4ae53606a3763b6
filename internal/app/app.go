// Package app wires the import pipeline together.
//
// An App is the single dependency context built once per process: the
// settings store, logger, fetcher, node store, metrics, sink and importer.
// Commands and the admin server call its methods instead of reaching for
// package-level state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/database"
	"github.com/nao1215/jokeimport/internal/fetcher"
	"github.com/nao1215/jokeimport/internal/importer"
	"github.com/nao1215/jokeimport/internal/metrics"
	"github.com/nao1215/jokeimport/internal/model"
	"github.com/nao1215/jokeimport/internal/sink"
)

// App holds the long-lived dependencies.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	settings *config.SettingsStore
	store    database.Store
	fetcher  *fetcher.Fetcher
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sink     *sink.Sink
	importer *importer.Importer
}

// Option configures an App.
type Option func(*options)

type options struct {
	store      database.Store
	httpClient *http.Client
}

// WithStore uses an already opened store instead of opening one from the config.
// The App takes ownership and closes it.
func WithStore(store database.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithHTTPClient overrides the fetcher's HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// New validates cfg and builds the dependency context.
// Settings are loaded when the settings file exists; otherwise defaults are
// used until Install writes them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	settings := config.NewSettingsStore(config.ResolveSettingsPath(cfg.SettingsPath))
	if err := settings.Load(); err != nil && !errors.Is(err, config.ErrSettingsNotFound) {
		return nil, err
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.ProxyAddress != "" {
		fetchOpts = append(fetchOpts, fetcher.WithProxy(cfg.ProxyAddress))
	}
	if o.httpClient != nil {
		fetchOpts = append(fetchOpts, fetcher.WithHTTPClient(o.httpClient))
	}
	f, err := fetcher.New(fetchOpts...)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = database.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	s := sink.New(store,
		sink.WithLogger(logger),
		sink.WithNodeTypeFunc(settings.NodeType),
	)
	im := importer.New(f, s,
		importer.WithConcurrency(cfg.Concurrency),
		importer.WithLogger(logger),
		importer.WithObserver(m),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		settings: settings,
		store:    store,
		fetcher:  f,
		registry: registry,
		metrics:  m,
		sink:     s,
		importer: im,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Config returns the runtime configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// SettingsStore returns the settings store.
func (a *App) SettingsStore() *config.SettingsStore {
	return a.settings
}

// Installed reports whether the settings file exists.
func (a *App) Installed() bool {
	return a.settings.Exists()
}

// Install writes the default settings.
func (a *App) Install(force bool) error {
	if err := a.settings.Install(force); err != nil {
		return err
	}
	a.logger.Info("module installed", "settings", a.settings.Path())
	return nil
}

// Uninstall deletes every node of the configured type, then the settings.
// It returns the number of nodes removed.
func (a *App) Uninstall(ctx context.Context) (int64, error) {
	nodeType := a.settings.NodeType()
	deleted, err := a.store.DeleteNodes(ctx, nodeType)
	if err != nil {
		return 0, err
	}
	if err := a.settings.Delete(); err != nil {
		return deleted, err
	}
	a.logger.Info("module uninstalled", "type", nodeType, "deleted", deleted)
	return deleted, nil
}

// Settings returns the current settings.
func (a *App) Settings() config.Settings {
	return a.settings.Settings()
}

// UpdateSettings validates and persists new settings. They take effect only
// once written.
func (a *App) UpdateSettings(s config.Settings) error {
	return a.settings.Update(s)
}

// PatchSettings changes some settings atomically; see config.SettingsStore.Patch.
func (a *App) PatchSettings(fn func(*config.Settings)) (config.Settings, error) {
	return a.settings.Patch(fn)
}

// RunImport fetches count jokes from url without saving them.
func (a *App) RunImport(ctx context.Context, url string, count int) ([]model.JokeRecord, error) {
	return a.importer.RunImport(ctx, url, count)
}

// Import fetches and saves the requested jokes.
func (a *App) Import(ctx context.Context, req model.ImportRequest) (*model.ImportReport, error) {
	return a.importer.Import(ctx, req)
}

// ImportNow imports page_size jokes from api_url using the current settings.
func (a *App) ImportNow(ctx context.Context) (*model.ImportReport, error) {
	s := a.settings.Settings()
	return a.Import(ctx, model.ImportRequest{SourceURL: s.APIURL, Count: s.PageSize})
}

// ListNodes returns up to limit nodes of the configured type, newest first.
func (a *App) ListNodes(ctx context.Context, limit, offset int) ([]*model.Node, error) {
	return a.store.ListNodes(ctx, a.settings.NodeType(), limit, offset)
}

// ListJokes returns one page of page_size listing rows, newest first.
// Pages are zero-based. A page_size of zero yields no rows.
func (a *App) ListJokes(ctx context.Context, page int) ([]model.JokeSummary, error) {
	size := a.settings.PageSize()
	offset, err := model.PageOffset(page, size)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return []model.JokeSummary{}, nil
	}
	nodes, err := a.ListNodes(ctx, size, offset)
	if err != nil {
		return nil, err
	}
	rows := make([]model.JokeSummary, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, n.Summary())
	}
	return rows, nil
}

// CountJokes returns the number of stored nodes of the configured type.
func (a *App) CountJokes(ctx context.Context) (int, error) {
	return a.store.CountNodes(ctx, a.settings.NodeType())
}

// Ping checks the store.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// MetricsHandler serves this App's metrics registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Metrics returns the import metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}
