package control

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utof/debtds/internal/collect/courts"
	"github.com/utof/debtds/internal/core/config"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/apicloud/apicloudtest"
	"github.com/utof/debtds/internal/table"
)

// runTwice runs the courts job on a fresh App, then again on a second App
// over the same backend, and checks the second run is served from storage.
func runTwice(t *testing.T, cfg *config.AppConfig) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	srv := apicloudtest.New(t, courtHandler)
	cfg.API.BaseURL = srv.URL
	cfg.API.Token = "test-token"
	cfg.API.RequestsPerSecond = 1000

	in, out := writeInput(t, "debtor_inn,creditor_inn\n"+debtorINN+","+creditorINN+"\n")
	key := domain.NewPairKey(debtorINN, creditorINN).String()

	first, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	_, _ = first.ResetKey(ctx, courts.JobName, key)
	_, err = first.Run(ctx, courts.JobName, in, out, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	srv.Reset()
	second, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	stats, err := second.Run(ctx, courts.JobName, in, out, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
	assert.Empty(t, srv.Requests())

	tbl, err := table.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "01.03.2024: http://x/a.pdf", tbl.Rows[0][tbl.Index("court_decision_links")])
}

func TestApp_JSONFileBackendPersists(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendJSONFile
	cfg.Storage.Dir = t.TempDir()
	runTwice(t, cfg)
}

func TestApp_PostgresBackend_Live(t *testing.T) {
	url := os.Getenv("DEBTDS_TEST_DATABASE_URL")
	if os.Getenv("E2E_LIVE") == "" || url == "" {
		t.Skip("Skipping live postgres test. Set E2E_LIVE=true and DEBTDS_TEST_DATABASE_URL to run.")
	}
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendPostgres
	cfg.Database.URL = url
	runTwice(t, cfg)
}

func TestApp_RedisBackend_Live(t *testing.T) {
	url := os.Getenv("DEBTDS_TEST_REDIS_URL")
	if os.Getenv("E2E_LIVE") == "" || url == "" {
		t.Skip("Skipping live redis test. Set E2E_LIVE=true and DEBTDS_TEST_REDIS_URL to run.")
	}
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendRedis
	cfg.Redis.URL = url
	cfg.Redis.Prefix = "debtds_test"
	runTwice(t, cfg)
}

func TestApp_CancelledRunStillWritesOutput(t *testing.T) {
	srv := apicloudtest.New(t, courtHandler)
	app := newTestApp(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in, out := writeInput(t, "debtor_inn,creditor_inn\n"+debtorINN+","+creditorINN+"\n")
	stats, err := app.Run(ctx, courts.JobName, in, out, nil)
	require.NoError(t, err)
	assert.True(t, stats.Halted)
	assert.Empty(t, srv.Requests())

	tbl, err := table.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultRetry, tbl.Rows[0][tbl.Index("court_decision_links")])
}
