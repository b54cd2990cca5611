package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/catalog"
	"github.com/sells-group/catalog-sync/internal/catalogsync"
	"github.com/sells-group/catalog-sync/internal/classify"
	"github.com/sells-group/catalog-sync/internal/config"
	"github.com/sells-group/catalog-sync/internal/db"
	"github.com/sells-group/catalog-sync/internal/facet"
	"github.com/sells-group/catalog-sync/internal/feed"
	"github.com/sells-group/catalog-sync/internal/fetcher"
	"github.com/sells-group/catalog-sync/internal/metrics"
	"github.com/sells-group/catalog-sync/internal/pricing"
	"github.com/sells-group/catalog-sync/internal/resilience"
	"github.com/sells-group/catalog-sync/internal/search"
	"github.com/sells-group/catalog-sync/internal/transform"
	"github.com/sells-group/catalog-sync/pkg/searchindex"
)

// connectPool opens the catalog database pool.
func connectPool(ctx context.Context, c *config.Config) (*pgxpool.Pool, error) {
	if c.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required")
	}
	return db.Connect(ctx, c.Store.DatabaseURL, db.PoolConfig{
		MaxConns: c.Store.MaxConns,
		MinConns: c.Store.MinConns,
	})
}

// newStateStore opens the configured checkpoint store. pool may be nil
// for the sqlite driver.
func newStateStore(ctx context.Context, c *config.Config, pool db.Pool) (catalogsync.StateStore, func(), error) {
	switch c.Sync.StateDriver {
	case "postgres":
		if pool == nil {
			return nil, nil, eris.New("postgres state driver needs store.database_url")
		}
		return catalogsync.NewPostgresStateStore(pool), func() {}, nil
	case "sqlite", "":
		st, err := catalogsync.NewSQLiteStateStore(ctx, c.Sync.StatePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil //nolint:errcheck
	default:
		return nil, nil, eris.Errorf("unsupported state driver %q", c.Sync.StateDriver)
	}
}

func newExtractor(c *config.Config) (*facet.Extractor, error) {
	if c.Facet.RulesFile == "" {
		return facet.NewExtractor(), nil
	}
	o, err := facet.LoadOverridesFile(c.Facet.RulesFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded facet overrides", zap.String("path", c.Facet.RulesFile))
	return facet.NewExtractor(facet.WithOverrides(o)), nil
}

func newTransformer(c *config.Config) (*transform.Transformer, error) {
	ext, err := newExtractor(c)
	if err != nil {
		return nil, err
	}
	return transform.New(ext, classify.New(), pricing.FromConfig(c.Pricing)), nil
}

func newSearchClient(c *config.Config) searchindex.Client {
	opts := []searchindex.Option{
		searchindex.WithRateLimit(c.Search.RatePerSec, 1),
		searchindex.WithRetry(3, time.Second),
	}
	if c.Search.BaseURL != "" {
		opts = append(opts, searchindex.WithBaseURL(c.Search.BaseURL))
	}
	return searchindex.NewClient(c.Search.AppID, c.Search.APIKey, opts...)
}

// newSource returns the feed source and the remote directory to read.
// A non-empty fromDir replaces the FTP drop with a local directory.
func newSource(c *config.Config, fromDir string) (fetcher.Source, string) {
	if fromDir != "" {
		return fetcher.DirSource{Root: fromDir}, "."
	}
	return fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Host:               c.Feed.Host,
		Port:               c.Feed.Port,
		Username:           c.Feed.Username,
		Password:           c.Feed.Password,
		TLS:                c.Feed.TLS,
		InsecureSkipVerify: c.Feed.InsecureSkipVerify,
		Timeout:            time.Duration(c.Feed.TimeoutSecs) * time.Second,
	}), c.Feed.RemoteDir
}

// syncEnv holds everything a sync run needs.
type syncEnv struct {
	Store   catalog.Store
	Writer  *catalog.Writer
	States  catalogsync.StateStore
	RunLog  catalogsync.RunLog
	Index   searchindex.Client
	Source  fetcher.Source
	Remote  string
	Pool    *pgxpool.Pool
	closers []func()
}

// Close releases the environment in reverse order of acquisition.
func (e *syncEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

type envOptions struct {
	DryRun  bool
	FromDir string
}

// initSyncEnv wires stores, clients, and the feed source. A dry run
// keeps the catalog and checkpoints in memory and publishes nowhere.
func initSyncEnv(ctx context.Context, c *config.Config, opts envOptions) (*syncEnv, error) {
	env := &syncEnv{}
	env.Source, env.Remote = newSource(c, opts.FromDir)

	if opts.DryRun {
		mem := catalog.NewMemoryStore()
		env.Store = mem
		env.Writer = catalog.NewWriter(mem, mem)
		env.States = &catalogsync.MemoryStateStore{}
		env.Index = &dryRunIndex{}
		return env, nil
	}

	pool, err := connectPool(ctx, c)
	if err != nil {
		return nil, err
	}
	env.Pool = pool
	env.closers = append(env.closers, pool.Close)

	states, closeStates, err := newStateStore(ctx, c, pool)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.closers = append(env.closers, closeStates)

	store := catalog.NewPostgresStore(pool)
	env.Store = store
	env.Writer = catalog.NewWriter(store, catalog.NewPostgresBackupStore(pool))
	env.States = states
	env.RunLog = catalogsync.NewSyncLog(pool)
	env.Index = newSearchClient(c)
	return env, nil
}

// buildOrchestrator assembles the three phases over env.
func buildOrchestrator(c *config.Config, env *syncEnv, reg *metrics.Registry) (*catalogsync.Orchestrator, error) {
	tr, err := newTransformer(c)
	if err != nil {
		return nil, err
	}

	publisher := search.NewPublisher(env.Store, env.Index, search.Options{
		Index:           c.Search.Index,
		BatchSize:       c.Search.BatchSize,
		Clear:           c.Search.ClearBeforePublish,
		ConfigureFacets: true,
		Retry:           resilience.RetryConfig{MaxAttempts: c.Search.MaxBatchAttempts},
	})

	phases := map[catalogsync.Phase]catalogsync.PhaseFunc{
		catalogsync.PhaseFetch: catalogsync.FetchPhase(catalogsync.FetchConfig{
			Source:    env.Source,
			RemoteDir: env.Remote,
			LocalDir:  c.Feed.LocalDir,
			Required:  []string{c.Feed.InventoryFile},
			Optional:  nonEmpty(c.Feed.QuantityFile, c.Feed.DeletedFile),
			Retry:     resilience.RetryConfig{MaxAttempts: c.Sync.FetchAttempts},
		}),
		catalogsync.PhaseTransformLoad: catalogsync.TransformLoadPhase(catalogsync.TransformLoadConfig{
			LocalDir:      c.Feed.LocalDir,
			InventoryFile: c.Feed.InventoryFile,
			QuantityFile:  c.Feed.QuantityFile,
			DeletedFile:   c.Feed.DeletedFile,
			Delimiter:     c.Feed.Delimiter,
			Parser:        feed.NewParser(feed.ParserOptions{Delimiter: c.Feed.Delimiter, MinFields: c.Feed.MinFields}),
			Transformer:   tr,
			Writer:        env.Writer,
			Workers:       c.Sync.Workers,
			BatchSize:     c.Sync.WriteBatchSize,
			Metrics:       reg,
		}),
		catalogsync.PhaseIndexPublish: catalogsync.IndexPublishPhase(publisher, reg),
	}

	options := []catalogsync.Option{catalogsync.WithMetrics(reg)}
	if env.RunLog != nil {
		options = append(options, catalogsync.WithRunLog(env.RunLog))
	}
	return catalogsync.New(phases, env.States, catalogsync.Options{
		MonitorInterval:  c.Sync.MonitorInterval,
		StallThreshold:   c.Sync.StallThreshold,
		MaxPhaseRestarts: c.Sync.MaxPhaseRestarts,
	}, options...)
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
