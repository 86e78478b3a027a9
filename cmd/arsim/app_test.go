package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Sim.LoadLatency = 0
	cfg.Sim.FrameRate = 240
	return cfg
}

func startApp(t *testing.T, cfg config.Config, log *zap.Logger) (*app, context.Context) {
	t.Helper()
	a, err := newApp(cfg, log, logObserver{log: log})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	a.run(ctx)
	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer closeCancel()
		_ = a.close(closeCtx)
		cancel()
	})
	return a, ctx
}

func TestRunScript(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a, ctx := startApp(t, testConfig(), zap.New(core))

	require.NoError(t, runScript(ctx, a))

	assert.Equal(t, 1, logs.FilterMessage("placed").FilterField(zap.String("id", "chair1")).Len())
	assert.Equal(t, 1, logs.FilterMessage("placed").FilterField(zap.String("id", "chair2")).Len())
	assert.NotZero(t, logs.FilterMessage("load progress").Len())
	assert.Zero(t, logs.FilterMessage("runtime error").Len())
	assert.Zero(t, logs.FilterMessage("asset error").Len())

	require.Eventually(t, func() bool {
		visuals, sounds := a.platform.Live()
		return visuals == 0 && sounds == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadCatalog(t *testing.T) {
	cat, err := loadCatalog(config.CatalogConfig{})
	require.NoError(t, err)
	assert.Equal(t, []catalog.ID{"chair1", "chair2", "fan", "lamp"}, cat.IDs())
	assert.Equal(t, "models/chair1.glb", cat.Resolve("chair1.glb"))

	cat, err = loadCatalog(config.CatalogConfig{AssetRoot: "/opt/assets"})
	require.NoError(t, err)
	assert.Equal(t, "/opt/assets/fan.glb", cat.Resolve("fan.glb"))

	_, err = loadCatalog(config.CatalogConfig{Path: filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(config.LogConfig{Level: "debug", Format: "console"}, true)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel), "TUI mode without a log file discards logs")

	log, err = newLogger(config.LogConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	path := filepath.Join(t.TempDir(), "arsim.log")
	log, err = newLogger(config.LogConfig{Level: "info", Format: "json", File: path}, true)
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "json"}, false)
	assert.Error(t, err)
}

func TestCatalogWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "objects.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[object]]\nid = \"stool\"\nmodel = \"stool.glb\"\n"), 0o644))

	cfg := testConfig()
	cfg.Catalog.Path = path
	cfg.Catalog.Watch = true
	a, _ := startApp(t, cfg, zap.NewNop())
	require.NotNil(t, a.watcher)
	assert.Equal(t, 1, a.catalog.Len())

	tmp := filepath.Join(dir, "objects.tmp")
	body := "[[object]]\nid = \"stool\"\nmodel = \"stool.glb\"\n\n[[object]]\nid = \"bench\"\nmodel = \"bench.glb\"\n"
	require.NoError(t, os.WriteFile(tmp, []byte(body), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return a.catalog.Len() == 2 }, 5*time.Second, 10*time.Millisecond)
	_, err := a.catalog.Lookup("bench")
	assert.NoError(t, err)
	require.NoError(t, a.rt.PlaceByID(context.Background(), "bench"))
}
