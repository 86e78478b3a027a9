package main

import (
	"context"
	_ "embed"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/config"
	"github.com/wippyai/ar-placement/runtime"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/sim"
	"github.com/wippyai/ar-placement/xr"
)

//go:embed objects.toml
var demoCatalog []byte

// surface is where the simulated floor is hit while hits are enabled.
var surface = xr.Translation(0, -1.2, -1.5)

type app struct {
	cfg      config.Config
	log      *zap.Logger
	catalog  *catalog.Catalog
	platform *sim.Platform
	rt       *runtime.Runtime
	watcher  *catalog.Watcher
	reticle  *sim.Visual
	stop     chan struct{}
}

func newLogger(cfg config.LogConfig, quiet bool) (*zap.Logger, error) {
	if quiet && cfg.File == "" {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}
	return zc.Build()
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.Path == "" {
		cat, err = catalog.Parse(demoCatalog, catalog.FormatTOML)
	} else {
		cat, err = catalog.Load(cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	if cfg.AssetRoot != "" {
		cat.SetAssetRoot(cfg.AssetRoot)
	}
	return cat, nil
}

// stock makes every asset the catalog names decodable by the simulator.
func stock(p *sim.Platform, cat *catalog.Catalog) {
	for _, pol := range cat.Policies() {
		p.AddModel(cat.Resolve(pol.Model), "idle")
		if pol.HasSound() {
			p.AddSound(cat.Resolve(pol.Sound))
		}
	}
}

func newApp(cfg config.Config, log *zap.Logger, observers ...runtime.Observer) (*app, error) {
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	p := sim.NewPlatform()
	p.SetLatency(cfg.Sim.LoadLatency)
	stock(p, cat)

	a := &app{
		cfg:      cfg,
		log:      log,
		catalog:  cat,
		platform: p,
		reticle:  &sim.Visual{Path: "reticle"},
	}

	opts := []runtime.Option{
		runtime.WithMaxPlaced(cfg.Placement.MaxPlaced),
		runtime.WithReleaseOnEnd(cfg.Placement.ReleaseOnEnd),
		runtime.WithOptionalFeatures(cfg.Features()...),
		runtime.WithReticle(a.reticle),
	}
	for _, o := range observers {
		opts = append(opts, runtime.WithObserver(o))
	}
	a.rt = runtime.New(p, cat, opts...)

	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		if err := a.watch(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) watch() error {
	w := catalog.NewWatcher(a.cfg.Catalog.Path, a.catalog)
	w.OnChange(func(c *catalog.Catalog) {
		if a.cfg.Catalog.AssetRoot != "" {
			c.SetAssetRoot(a.cfg.Catalog.AssetRoot)
		}
		stock(a.platform, c)
		a.log.Info("catalog reloaded", zap.Int("objects", c.Len()))
	})
	if err := w.Start(); err != nil {
		return err
	}
	a.stop = make(chan struct{})
	go func() {
		for {
			select {
			case err := <-w.Errors():
				a.log.Warn("catalog reload failed", zap.Error(err))
			case <-a.stop:
				return
			}
		}
	}()
	a.watcher = w
	return nil
}

// run drives the runtime loop and the simulated display until ctx is done.
func (a *app) run(ctx context.Context) {
	go func() {
		if err := a.rt.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("runtime stopped", zap.Error(err))
		}
	}()
	go a.frames(ctx)
}

func (a *app) frames(ctx context.Context) {
	interval := a.cfg.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s := a.platform.Session(); s != nil {
				s.Step(interval)
			}
		}
	}
}

// setHits points the simulated camera at the floor, or away from it.
func (a *app) setHits(on bool) {
	s := a.platform.Session()
	if s == nil {
		return
	}
	if on {
		s.SetHits(surface)
	} else {
		s.SetHits()
	}
}

// tap delivers a select gesture through the platform session when one
// exists, the way a screen tap arrives on a device.
func (a *app) tap() {
	if s := a.platform.Session(); s != nil && !s.Ended() {
		s.Tap()
		return
	}
	if err := a.rt.Select(); err != nil {
		a.log.Warn("select", zap.Error(err))
	}
}

func (a *app) background() {
	if s := a.platform.Session(); s != nil {
		s.Background()
	}
}

func (a *app) close(ctx context.Context) error {
	if a.watcher != nil {
		_ = a.watcher.Close()
		close(a.stop)
	}
	err := a.rt.Close(ctx)
	_ = a.log.Sync()
	return err
}

// logObserver writes every runtime notification to the log.
type logObserver struct {
	log *zap.Logger
}

func (o logObserver) OnSessionStateChanged(s session.State) {
	o.log.Info("session state", zap.Stringer("state", s))
}

func (o logObserver) OnLoadProgress(id catalog.ID, f float64) {
	o.log.Debug("load progress", zap.String("id", string(id)), zap.Float64("fraction", f))
}

func (o logObserver) OnAssetError(id catalog.ID, err error) {
	o.log.Warn("asset error", zap.String("id", string(id)), zap.Error(err))
}

func (o logObserver) OnActiveChanged(id catalog.ID, p catalog.Policy) {
	o.log.Info("active object", zap.String("id", string(id)), zap.String("name", p.Name), zap.String("description", p.Description))
}

func (o logObserver) OnPlaced(id catalog.ID, pose xr.Pose) {
	o.log.Info("placed", zap.String("id", string(id)), zap.Stringer("position", pose.Position()))
}

func (o logObserver) OnError(err error) {
	o.log.Warn("runtime error", zap.Error(err))
}
