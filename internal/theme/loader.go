// Package theme loads a store's theme files: raw Liquid source through
// the shared cache with in-flight de-duplication, and parsed templates
// through an expiring LRU layered on top.
package theme

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/osteele/liquid"
	"golang.org/x/sync/singleflight"

	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/metrics"
	"github.com/fasttify/liquidforge/internal/storage"
)

// LayoutPath is the theme's single layout template.
const LayoutPath = "layout/theme.liquid"

// Parser turns raw Liquid source into an executable template. The
// engine wrapper satisfies it, as does a bare *liquid.Engine.
type Parser interface {
	ParseTemplate(source []byte) (*liquid.Template, error)
}

// Loader fetches theme files for rendering. The raw layer sits on the
// shared cache manager; the compiled layer is a bounded expiring LRU.
// In production, concurrent raw loads for the same key share one
// storage fetch; in development de-duplication is off so live edits
// behave predictably.
type Loader struct {
	primary  storage.ObjectStore
	fallback storage.ObjectStore
	cache    *cache.Manager
	parser   Parser
	compiled *lru.LRU[string, *liquid.Template]

	flight     singleflight.Group
	production bool

	log     logging.Logger
	metrics *metrics.Metrics
}

// Options configures a Loader.
type Options struct {
	// Primary is consulted first (the CDN in production).
	Primary storage.ObjectStore
	// Fallback is tried when Primary misses or fails (the bucket).
	// Optional.
	Fallback storage.ObjectStore
	Cache    *cache.Manager
	Parser   Parser
	// Production enables singleflight de-duplication.
	Production bool
	// CompiledCacheSize bounds the parsed-template LRU. Defaults to 256.
	CompiledCacheSize int
	Logger            logging.Logger
	Metrics           *metrics.Metrics
}

// NewLoader creates a theme loader.
func NewLoader(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	size := opts.CompiledCacheSize
	if size <= 0 {
		size = 256
	}
	return &Loader{
		primary:    opts.Primary,
		fallback:   opts.Fallback,
		cache:      opts.Cache,
		parser:     opts.Parser,
		compiled:   lru.NewLRU[string, *liquid.Template](size, nil, opts.Cache.TemplateTTL()),
		production: opts.Production,
		log:        opts.Logger.WithComponent("theme"),
		metrics:    opts.Metrics,
	}
}

// LoadRaw returns the raw source of a template. Missing files surface
// as typed TEMPLATE_NOT_FOUND errors carrying the path.
func (l *Loader) LoadRaw(ctx context.Context, storeID, path string) (string, error) {
	path = storage.NormalizeTemplatePath(path)
	key := cache.TemplateKey(storeID, path)

	if cached, ok := l.cache.Get(key); ok {
		if src, ok := cached.(string); ok {
			return src, nil
		}
	}

	if !l.production {
		return l.fetchAndCache(ctx, storeID, path, key)
	}

	v, err, _ := l.flight.Do(key, func() (any, error) {
		return l.fetchAndCache(ctx, storeID, path, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (l *Loader) fetchAndCache(ctx context.Context, storeID, path, key string) (string, error) {
	objectKey := "templates/" + storeID + "/" + path

	data, err := l.primary.Get(ctx, objectKey)
	if err != nil && l.fallback != nil {
		l.log.Debug(ctx, "primary store miss, trying fallback", "key", objectKey)
		data, err = l.fallback.Get(ctx, objectKey)
	}
	if err != nil {
		return "", errors.NewTemplateNotFound(path, err)
	}

	l.metrics.TemplateLoad()
	src := string(data)
	l.cache.Set(key, src, l.cache.TemplateTTL())
	return src, nil
}

// LoadCompiled returns the parsed form of a template, loading and
// parsing on miss. Parse failures are RENDER_ERROR, not
// TEMPLATE_NOT_FOUND: the file exists, its contents are bad.
func (l *Loader) LoadCompiled(ctx context.Context, storeID, path string) (*liquid.Template, error) {
	path = storage.NormalizeTemplatePath(path)
	key := cache.CompiledTemplateKey(storeID, path)

	if tmpl, ok := l.compiled.Get(key); ok {
		l.metrics.CacheHit(cache.CategoryTemplate)
		return tmpl, nil
	}

	src, err := l.LoadRaw(ctx, storeID, path)
	if err != nil {
		return nil, err
	}

	tmpl, err := l.parser.ParseTemplate([]byte(src))
	if err != nil {
		return nil, errors.NewRenderError("parsing template: "+path, err).WithDetail("path", path)
	}

	l.compiled.Add(key, tmpl)
	return tmpl, nil
}

// Invalidate clears both the raw and compiled entries for one
// template.
func (l *Loader) Invalidate(storeID, path string) {
	path = storage.NormalizeTemplatePath(path)
	l.cache.Delete(cache.TemplateKey(storeID, path))
	l.compiled.Remove(cache.CompiledTemplateKey(storeID, path))
}

// InvalidateStore clears every cached template for a store, raw and
// compiled.
func (l *Loader) InvalidateStore(storeID string) {
	l.cache.DeleteByPrefix("template_" + storeID + "_")
	prefix := "compiled_" + storeID + "_"
	for _, key := range l.compiled.Keys() {
		if strings.HasPrefix(key, prefix) {
			l.compiled.Remove(key)
		}
	}
}

// LoadLayout returns the theme's layout source.
func (l *Loader) LoadLayout(ctx context.Context, storeID string) (string, error) {
	return l.LoadRaw(ctx, storeID, LayoutPath)
}

// LoadSection returns a section's source by bare name.
func (l *Loader) LoadSection(ctx context.Context, storeID, name string) (string, error) {
	return l.LoadRaw(ctx, storeID, "sections/"+name+".liquid")
}

// LoadSnippet returns a snippet's source by bare name.
func (l *Loader) LoadSnippet(ctx context.Context, storeID, name string) (string, error) {
	return l.LoadRaw(ctx, storeID, "snippets/"+name+".liquid")
}
