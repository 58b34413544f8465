package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PivotScreener/internal/config"
	"PivotScreener/internal/recorder"
	"PivotScreener/internal/snapshot"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("missing.yaml")
	require.NoError(t, err)
	return cfg
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--host", "127.0.0.1", "--port", "9090"}))

	host, err := cmd.Flags().GetString("host")
	require.NoError(t, err)
	port, err := cmd.Flags().GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 9090, port)
}

func TestSetup_SelectsImplementations(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, "nse", newUniverse(cfg).Name())
	assert.Equal(t, "yahoo", newFetcher(cfg).Name())

	cfg.Universe.Symbols = []string{"SBIN"}
	cfg.DataSource.BaseURL = "http://bars.internal"
	assert.Equal(t, "static", newUniverse(cfg).Name())
	assert.Equal(t, "rest", newFetcher(cfg).Name())

	p, closeFn := newPersister(cfg, nil)
	assert.Equal(t, "file", p.Name())
	assert.NoError(t, closeFn())
}

func TestSetup_UnreachableRedisFallsBackToFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Snapshot.Backend = config.BackendRedis
	cfg.Snapshot.RedisAddr = "127.0.0.1:1"

	p, closeFn := newPersister(cfg, nil)
	require.IsType(t, &snapshot.FilePersister{}, p)
	assert.Equal(t, cfg.Snapshot.File, p.(*snapshot.FilePersister).Path)
	assert.NoError(t, closeFn())
}

func TestSetup_Recorder(t *testing.T) {
	cfg := testConfig(t)

	rec := newRecorder(cfg, nil)
	defer rec.Close()
	assert.IsType(t, &recorder.SQLiteRecorder{}, rec)

	cfg.Database.SQLitePath = config.RecorderOff
	assert.IsType(t, &recorder.NoopRecorder{}, newRecorder(cfg, nil))
}
