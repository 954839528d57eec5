package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/utof/debtds/internal/collect/bankrot"
	"github.com/utof/debtds/internal/collect/batch"
	"github.com/utof/debtds/internal/collect/courts"
	"github.com/utof/debtds/internal/collect/fssp"
	"github.com/utof/debtds/internal/collect/health"
	"github.com/utof/debtds/internal/collect/paginate"
	"github.com/utof/debtds/internal/collect/recovery"
	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/config"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/core/quota"
	"github.com/utof/debtds/internal/infra/apicloud"
	redisclient "github.com/utof/debtds/internal/infra/redis"
	"github.com/utof/debtds/internal/infra/storage"
	"github.com/utof/debtds/internal/infra/storage/jsonfile"
	"github.com/utof/debtds/internal/infra/storage/memory"
	"github.com/utof/debtds/internal/infra/storage/postgres"
	"github.com/utof/debtds/internal/table"
)

// ErrUnknownJob is returned for a job name that is not registered.
var ErrUnknownJob = errors.New("unknown job")

// Jobs lists the registered job names.
var Jobs = []string{courts.JobName, bankrot.JobName, fssp.JobName}

// App owns the storage backend, the api-cloud client and everything the
// jobs share. One App serves one process.
type App struct {
	cfg     *config.AppConfig
	store   storage.KVStore
	ledger  *recovery.Ledger
	guard   *quota.Guard
	tracker *quota.Tracker
	client  *apicloud.Client
	fetcher *paginate.Fetcher
	monitor *health.Monitor
	db      *postgres.DB
	redis   *redisclient.Client
	log     *slog.Logger
}

// NewApp connects the configured storage backend and builds the shared
// components.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	failed, err := a.openStorage(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.ledger = recovery.NewLedger(failed)
	a.guard = quota.NewGuard(cfg.Quota.LowBalanceThreshold)
	a.tracker = quota.NewTracker(cfg.Quota.CallBudget)
	a.client = apicloud.NewClient(cfg.API, a.guard, a.tracker)
	a.fetcher = paginate.NewFetcher(cfg.Collect.MaxPagesPerRun)
	a.monitor = health.NewMonitor(Jobs, a.guard, a.tracker, a.ledger)

	return a, nil
}

// openStorage selects the KV store and failed pair repository.
func (a *App) openStorage(ctx context.Context) (storage.FailedPairRepository, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendMemory:
		store := memory.NewMemoryStorage()
		a.store = store
		a.log.Info("Using memory storage")
		return memory.NewFailedRepo(store), nil

	case config.BackendRedis:
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redis = client
		a.store = redisclient.NewKVStore(client)
		a.log.Info("Using Redis storage")
		return redisclient.NewFailedPairRepo(client), nil

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := postgres.Migrate(db); err != nil {
			return nil, err
		}
		a.store = postgres.NewKVRepo(db)
		db.StartMetricsCollector(ctx)
		a.log.Info("Using PostgreSQL storage")
		return postgres.NewFailedPairRepo(db), nil

	default:
		store, err := jsonfile.New(a.cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache dir: %w", err)
		}
		a.store = store
		failed, err := recovery.NewStoreRepository(ctx, store)
		if err != nil {
			return nil, err
		}
		a.log.Info("Using JSON file storage", "dir", a.cfg.Storage.Dir)
		return failed, nil
	}
}

// Guard returns the shared balance guard.
func (a *App) Guard() *quota.Guard {
	return a.guard
}

// Ledger returns the failed pair ledger.
func (a *App) Ledger() *recovery.Ledger {
	return a.ledger
}

// Job opens the caches of the named job and builds it.
func (a *App) Job(ctx context.Context, name string) (batch.Job, error) {
	switch name {
	case courts.JobName:
		searches, err := cache.Open[domain.SearchState](ctx, a.store, courts.NamespaceSearch)
		if err != nil {
			return batch.Job{}, err
		}
		details, err := cache.Open[apicloud.CaseInfoResponse](ctx, a.store, courts.NamespaceCaseInfo)
		if err != nil {
			return batch.Job{}, err
		}
		results, err := cache.Open[domain.Result](ctx, a.store, courts.NamespaceResults)
		if err != nil {
			return batch.Job{}, err
		}
		resolver := courts.NewResolver(a.client, searches, details, a.fetcher)
		return courts.NewJob(a.cfg.Collect.Courts, resolver, results), nil

	case bankrot.JobName:
		responses, err := cache.Open[apicloud.BankrotResponse](ctx, a.store, bankrot.NamespaceResponses)
		if err != nil {
			return batch.Job{}, err
		}
		results, err := cache.Open[domain.Result](ctx, a.store, bankrot.NamespaceResults)
		if err != nil {
			return batch.Job{}, err
		}
		return bankrot.NewJob(a.cfg.Collect.Bankrot.Columns, bankrot.NewResolver(a.client, responses), results), nil

	case fssp.JobName:
		responses, err := cache.Open[apicloud.FSSPResponse](ctx, a.store, fssp.NamespaceResponses)
		if err != nil {
			return batch.Job{}, err
		}
		results, err := cache.Open[domain.Result](ctx, a.store, fssp.NamespaceResults)
		if err != nil {
			return batch.Job{}, err
		}
		return fssp.NewJob(a.cfg.Collect.FSSP, fssp.NewResolver(a.client, responses), results), nil
	}
	return batch.Job{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// Run executes one job over the input table and writes the output table.
// The health server, when enabled, runs alongside the batch and stops with
// it. The output is written even when the run halted early.
func (a *App) Run(ctx context.Context, name, input, output string, observer batch.Observer) (batch.Stats, error) {
	tbl, err := table.ReadFile(input)
	if err != nil {
		return batch.Stats{}, err
	}
	job, err := a.Job(ctx, name)
	if err != nil {
		return batch.Stats{}, err
	}

	opts := []batch.Option{batch.WithLedger(a.ledger)}
	if observer != nil {
		opts = append(opts, batch.WithObserver(observer))
	}
	driver := batch.NewDriver(opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.cfg.Server.Port > 0 {
		server := health.NewServer(a.monitor, a.cfg.Server.Port)
		g.Go(func() error { return server.Run(gctx) })
	}

	var (
		stats    batch.Stats
		driveErr error
	)
	g.Go(func() error {
		defer cancel()
		stats, driveErr = driver.Run(gctx, job, tbl)
		return driveErr
	})

	waitErr := g.Wait()
	if driveErr != nil {
		return stats, driveErr
	}

	if err := tbl.WriteFile(output); err != nil {
		return stats, err
	}
	a.log.Info("Output written", "job", name, "path", output, "rows", len(tbl.Rows))
	if waitErr != nil {
		return stats, fmt.Errorf("health server: %w", waitErr)
	}
	return stats, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	var result *multierror.Error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close store: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close db: %w", err))
		}
	}
	return result.ErrorOrNil()
}
