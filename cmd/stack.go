package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fasttify/liquidforge/internal/analyzer"
	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/config"
	"github.com/fasttify/liquidforge/internal/data"
	"github.com/fasttify/liquidforge/internal/liquid"
	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/metrics"
	"github.com/fasttify/liquidforge/internal/renderer"
	"github.com/fasttify/liquidforge/internal/storage"
	"github.com/fasttify/liquidforge/internal/tenant"
	"github.com/fasttify/liquidforge/internal/theme"
)

// stack is the assembled service graph for one process.
type stack struct {
	cfg      *config.Config
	log      logging.Logger
	metrics  *metrics.Metrics
	cache    *cache.Manager
	themes   *theme.Loader
	renderer *renderer.Renderer
	cleanup  func()
}

// buildStack constructs every service from configuration. All wiring
// lives here so services stay free of global state.
func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	log := newLogger(cfg)
	mx := metrics.New()

	c := cache.NewManager(
		cache.WithDevelopmentMode(cfg.Development.Enabled),
		cache.WithMetrics(mx),
		cache.WithLogger(log),
	)

	primary, fallback, err := buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := liquid.NewEngine(log)
	themes := theme.NewLoader(theme.Options{
		Primary:           primary,
		Fallback:          fallback,
		Cache:             c,
		Parser:            engine,
		Production:        cfg.Production(),
		CompiledCacheSize: cfg.Render.CompiledCacheSize,
		Logger:            log,
		Metrics:           mx,
	})

	directory, backend, cleanup, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	r := renderer.New(renderer.Options{
		Resolver:       tenant.NewResolver(directory, c, cfg.Platform.DomainSuffix, log),
		Themes:         themes,
		Analyzer:       analyzer.New(themes, log),
		Data:           data.NewLoader(backend, c, log),
		Engine:         engine,
		Cache:          c,
		BaseURL:        cfg.Platform.BaseURL,
		RequestTimeout: time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		Logger:         log,
		Metrics:        mx,
	})

	return &stack{
		cfg:      cfg,
		log:      log,
		metrics:  mx,
		cache:    c,
		themes:   themes,
		renderer: r,
		cleanup:  cleanup,
	}, nil
}

// buildStores picks the theme storage chain: local dir in development,
// otherwise CDN with the bucket behind it.
func buildStores(ctx context.Context, cfg *config.Config) (primary, fallback storage.ObjectStore, err error) {
	if cfg.Storage.LocalThemeDir != "" {
		return storage.NewDirStore(cfg.Storage.LocalThemeDir), nil, nil
	}

	s3, err := storage.NewS3StoreFromEnv(ctx, cfg.Storage.Bucket, cfg.Storage.Region)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing theme bucket: %w", err)
	}
	if cfg.Storage.CDNDomain != "" {
		return storage.NewCDNStore(cfg.Storage.CDNDomain, nil), s3, nil
	}
	return s3, nil, nil
}

// buildBackends picks tenant and data sources: postgres when a
// database is configured, otherwise a seeded in-memory set for local
// theme development.
func buildBackends(ctx context.Context, cfg *config.Config, log logging.Logger) (tenant.Directory, data.Backend, func(), error) {
	if cfg.Database.URL != "" {
		pg, err := data.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		pool := pg.Pool()
		return tenant.NewPGDirectory(pool), pg, pg.Close, nil
	}

	if cfg.Development.StoreID == "" {
		return nil, nil, nil, fmt.Errorf("database.url is required outside local theme development")
	}

	log.Info(ctx, "no database configured, using in-memory demo data",
		"store_id", cfg.Development.StoreID)
	store := &tenant.Store{
		ID:           cfg.Development.StoreID,
		Name:         "Development Store",
		Slug:         "dev",
		CustomDomain: "localhost",
		Status:       "active",
		Currency:     "USD",
		Locale:       "en",
	}
	return tenant.NewStaticDirectory(store), demoBackend(cfg.Development.StoreID), func() {}, nil
}

// demoBackend seeds enough data to render a typical theme locally.
func demoBackend(storeID string) *data.MemBackend {
	b := data.NewMemBackend()
	b.SeedProduct(storeID, data.Product{
		ID: "demo-1", Title: "Sample Shirt", Handle: "sample-shirt",
		Price: 2500, Currency: "USD", Status: "active", Quantity: 10,
		Images: []string{"https://placehold.co/600x600"},
	})
	b.SeedProduct(storeID, data.Product{
		ID: "demo-2", Title: "Sample Mug", Handle: "sample-mug",
		Price: 1200, Currency: "USD", Status: "active", Quantity: 25,
	})
	b.SeedCollection(storeID, data.Collection{
		ID: "demo-c1", Title: "Featured", Handle: "featured",
	}, "demo-1", "demo-2")
	b.SeedPage(storeID, data.Page{
		ID: "demo-p1", Title: "About Us", Handle: "about-us",
		Body: "<p>A demo page.</p>", Visible: true,
	})
	b.SeedMenu(storeID, data.NavigationMenu{
		Handle: "main-menu", Title: "Main menu",
		Items: []data.NavItem{
			{Title: "Home", URL: "/"},
			{Title: "Catalog", URL: "/collections/featured"},
		},
	})
	b.SeedPolicies(storeID, data.Policy{
		Handle: "privacy-policy", Title: "Privacy policy", Body: "<p>...</p>",
	})
	return b
}

func newLogger(cfg *config.Config) logging.Logger {
	level := logging.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.NewLogger(&logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
	})
}
