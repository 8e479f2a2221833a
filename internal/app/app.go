package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five82/seriesnet/internal/config"
	"github.com/five82/seriesnet/internal/logging"
	"github.com/five82/seriesnet/internal/prefs"
	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
	"github.com/five82/seriesnet/internal/session"
	"github.com/five82/seriesnet/internal/state"
	"github.com/five82/seriesnet/internal/ui"
)

// Options configure the SeriesNet client.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/seriesnet/prefs.toml
	APIURL     string // overrides the configured backend when set
}

// runtime holds everything Run wires together.
type runtime struct {
	cfg    config.Config
	prefs  prefs.Prefs
	logger *logging.Logger
	cache  *query.Cache
	store  *state.Store
	assets seriesnet.Assets
}

// Run boots the SeriesNet TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Component(logging.ComponentApp).Info("starting",
		slog.String("api_url", rt.cfg.APIURL),
		slog.Bool("anonymous", rt.store.Session().Anonymous()),
	)

	return ui.Run(ui.Options{
		Context:     ctx,
		Store:       rt.store,
		Assets:      rt.assets,
		Logger:      rt.logger.Component(logging.ComponentUI),
		LogPath:     rt.logger.Path(),
		ThemeName:   rt.prefs.Theme,
		PrefsPath:   opts.PrefsPath,
		DefaultSort: rt.prefs.DefaultSort,
	})
}

// setup loads configuration and builds the client, cache and store. The
// cache janitor runs until ctx ends or close is called.
func setup(ctx context.Context, opts Options) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
		cfg.AssetURL = opts.APIURL
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	sessions, err := session.Open(cfg.SessionPath)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}

	client, err := seriesnet.NewClient(cfg.APIURL,
		seriesnet.WithTimeout(cfg.RequestTimeout),
		seriesnet.WithLogger(logger.Component(logging.ComponentAPI)),
	)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	cache := query.New(query.Options{
		StaleTime: cfg.StaleTime,
		GCTime:    cfg.GCTime,
		Logger:    logger.Component(logging.ComponentCache),
	})
	cache.StartJanitor(ctx, 0)

	return &runtime{
		cfg:    cfg,
		prefs:  prefs.Load(opts.PrefsPath),
		logger: logger,
		cache:  cache,
		store:  state.New(client, cache, sessions, logger.Component(logging.ComponentApp)),
		assets: seriesnet.NewAssets(cfg.AssetURL),
	}, nil
}

func (rt *runtime) close() {
	rt.cache.Close()
	_ = rt.logger.Close()
}
