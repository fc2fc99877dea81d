// Package renderer runs the page rendering pipeline: resolve the
// tenant, analyze the page's template set, load the data it needs,
// render content into the layout and derive SEO metadata, with whole
// pages cached by type-specific TTLs.
package renderer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fasttify/liquidforge/internal/analyzer"
	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/data"
	forgerrors "github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/liquid"
	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/metrics"
	"github.com/fasttify/liquidforge/internal/tenant"
	"github.com/fasttify/liquidforge/internal/theme"
)

// defaultRequestTimeout bounds one render end to end, cancelling
// outstanding storage and backend fetches when it fires.
const defaultRequestTimeout = 10 * time.Second

// RequestOptions carries the per-request inputs beyond domain and path.
type RequestOptions struct {
	// CartID identifies the visitor's cart session, if any.
	CartID string
	// Token is the continuation token for the page being viewed.
	Token string
	// PreviousToken points back at the page the visitor came from.
	PreviousToken string
	// SearchQuery is the q parameter on search pages.
	SearchQuery string
}

// Result is a fully rendered page plus its caching and SEO envelope.
type Result struct {
	HTML       string
	Metadata   Metadata
	CacheKey   string
	CacheTTL   time.Duration
	StatusCode int
	// ErrorType is set when the result is an error page.
	ErrorType forgerrors.ErrorType
}

// Options wires a Renderer's collaborators.
type Options struct {
	Resolver *tenant.Resolver
	Themes   *theme.Loader
	Analyzer *analyzer.Analyzer
	Data     *data.Loader
	Engine   *liquid.Engine
	Cache    *cache.Manager
	// BaseURL builds canonical URLs, e.g. "https://shop.example.com".
	// Optional; when empty the request domain is used.
	BaseURL string
	// RequestTimeout bounds one render. Defaults to 10s.
	RequestTimeout time.Duration
	Logger         logging.Logger
	Metrics        *metrics.Metrics
}

// Renderer executes the rendering pipeline.
type Renderer struct {
	resolver *tenant.Resolver
	themes   *theme.Loader
	analyzer *analyzer.Analyzer
	data     *data.Loader
	engine   *liquid.Engine
	cache    *cache.Manager

	baseURL string
	timeout time.Duration

	log     logging.Logger
	metrics *metrics.Metrics
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Renderer{
		resolver: opts.Resolver,
		themes:   opts.Themes,
		analyzer: opts.Analyzer,
		data:     opts.Data,
		engine:   opts.Engine,
		cache:    opts.Cache,
		baseURL:  opts.BaseURL,
		timeout:  timeout,
		log:      opts.Logger.WithComponent("renderer"),
		metrics:  opts.Metrics,
	}
}

// Render runs the pipeline for one request and propagates typed errors
// to the caller. Most callers want RenderPage, which converts failures
// into rendered error pages.
func (r *Renderer) Render(ctx context.Context, domain, path string, opts RequestOptions) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()

	store, err := r.resolver.ResolveStore(ctx, domain)
	if err != nil {
		return nil, err
	}

	desc := MatchRoute(path)
	ttl := r.cache.PageTTL(desc.PageType)

	// Manager.Get records the page-category hit or miss.
	pageKey := cache.PageKey(store.ID, desc.PageType+"/"+desc.Handle, pageQualifier(opts))
	if ttl > 0 {
		if cached, ok := r.cache.Get(pageKey); ok {
			if result, ok := cached.(*Result); ok {
				return result, nil
			}
		}
	}

	result, err := r.renderUncached(ctx, store, domain, path, desc, opts)
	if err != nil {
		if re, ok := forgerrors.AsRenderError(err); ok {
			r.metrics.RenderError(string(re.Type))
		}
		return nil, err
	}
	result.CacheTTL = ttl

	if ttl > 0 {
		r.cache.Set(pageKey, result, ttl)
	}

	r.metrics.ObserveRender(desc.PageType, time.Since(started).Seconds())
	r.log.Info(ctx, "page rendered",
		"store_id", store.ID, "page_type", desc.PageType, "path", path,
		"duration_ms", time.Since(started).Milliseconds())
	return result, nil
}

func (r *Renderer) renderUncached(ctx context.Context, store *tenant.Store, domain, path string, desc PageDescriptor, opts RequestOptions) (*Result, error) {
	// Initialize the engine scope for this render.
	state := &liquid.RenderState{
		Ctx:     ctx,
		StoreID: store.ID,
		Locale:  store.Locale,
		Sources: r.themes,
		Assets:  liquid.NewAssetCollector(),
		Log:     r.log,
	}

	contentSource, config, err := r.resolveContent(ctx, store.ID, desc)
	if err != nil {
		return nil, err
	}
	state.Config = config

	layoutSource, err := r.themes.LoadLayout(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	// Analyze the whole template set reachable from this page.
	analysis := r.analyzer.AnalyzeTemplateSet(ctx, store.ID, map[string]string{
		theme.LayoutPath:                       layoutSource,
		"templates/" + desc.TemplateName + ".liquid": contentSource,
	})

	bindings, err := r.buildContext(ctx, store, desc, analysis, opts, path)
	if err != nil {
		return nil, err
	}
	state.Bindings = bindings

	r.preloadSections(ctx, store.ID, analysis.UsedSections, state)

	content, err := r.engine.RenderSource(contentSource, bindings, state)
	if err != nil {
		return nil, forgerrors.NewRenderError("rendering "+desc.TemplateName+" content", err).
			WithDetail("page_type", desc.PageType)
	}

	md := buildMetadata(store, desc, bindings, r.canonicalBase(domain), path)

	layoutBindings := make(map[string]any, len(bindings)+2)
	for k, v := range bindings {
		layoutBindings[k] = v
	}
	layoutBindings["content_for_layout"] = content
	layoutBindings["content_for_header"] = headHTML(md)

	page, err := r.engine.RenderSource(layoutSource, layoutBindings, state)
	if err != nil {
		return nil, forgerrors.NewRenderError("rendering layout", err)
	}

	page = injectAssets(page, state.Assets)

	status := 200
	if desc.PageType == "404" {
		status = 404
	}
	return &Result{
		HTML:       page,
		Metadata:   md,
		CacheKey:   renderCacheKey(desc, store.ID),
		StatusCode: status,
	}, nil
}

// resolveContent finds the page's content template: a JSON section
// config when the theme ships one, otherwise the Liquid template of
// the same name. Config-driven pages become a synthetic source of
// section tags in configured order.
func (r *Renderer) resolveContent(ctx context.Context, storeID string, desc PageDescriptor) (string, *theme.TemplateConfig, error) {
	config, err := r.themes.LoadPageConfig(ctx, storeID, desc.TemplateName)
	if err == nil {
		var b strings.Builder
		for _, section := range config.OrderedSections() {
			fmt.Fprintf(&b, "{%% section '%s' %%}\n", section.Config.Type)
		}
		return b.String(), config, nil
	}
	if !forgerrors.IsType(err, forgerrors.ErrTemplateNotFound) {
		return "", nil, err
	}

	src, err := r.themes.LoadRaw(ctx, storeID, "templates/"+desc.TemplateName+".liquid")
	if err != nil {
		return "", nil, err
	}
	return src, nil, nil
}

// buildContext merges store context, loaded data and request scope
// into the bindings the templates render against.
func (r *Renderer) buildContext(ctx context.Context, store *tenant.Store, desc PageDescriptor, analysis *analyzer.Analysis, opts RequestOptions, path string) (map[string]any, error) {
	bindings, err := r.data.Load(ctx, store, analysis, data.Request{
		PageType:    desc.PageType,
		Handle:      desc.Handle,
		CartID:      opts.CartID,
		NextToken:   opts.Token,
		SearchQuery: opts.SearchQuery,
	})
	if err != nil {
		return nil, err
	}

	bindings["page_type"] = desc.PageType
	bindings["handle"] = desc.Handle
	bindings["request"] = map[string]any{"path": path, "page_type": desc.PageType}
	bindings["canonical_url"] = r.canonicalBase(store.CustomDomain) + path
	if opts.Token != "" {
		bindings["current_token"] = opts.Token
	}
	if opts.PreviousToken != "" {
		bindings["previous_token"] = opts.PreviousToken
	}
	if desc.PageType == "search" {
		bindings["search"] = map[string]any{
			"terms":         opts.SearchQuery,
			"performed":     opts.SearchQuery != "",
			"results":       []any{},
			"results_count": 0,
		}
	}
	return bindings, nil
}

// preloadSections fetches every referenced section concurrently so the
// section tags render from memory instead of issuing serial loads.
func (r *Renderer) preloadSections(ctx context.Context, storeID string, names []string, state *liquid.RenderState) {
	if len(names) == 0 {
		return
	}
	preloaded := make(map[string]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	results := make([]string, len(names))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			src, err := r.themes.LoadSection(gctx, storeID, name)
			if err != nil {
				// The section tag degrades to a comment on its own.
				r.log.Warn(gctx, err, "section preload failed", "section", name, "store_id", storeID)
				return nil
			}
			results[i] = src
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range names {
		if results[i] != "" {
			preloaded[name] = results[i]
		}
	}
	state.Preloaded = preloaded
}

// injectAssets splices collected CSS into the head and JS before the
// closing body tag, appending when the layout lacks those tags.
func injectAssets(page string, assets *liquid.AssetCollector) string {
	if assets == nil || assets.Empty() {
		return page
	}
	if css := assets.CSS(); css != "" {
		tag := "<style data-liquidforge-assets>" + css + "</style>"
		if i := strings.LastIndex(page, "</head>"); i >= 0 {
			page = page[:i] + tag + "\n" + page[i:]
		} else {
			page = tag + "\n" + page
		}
	}
	if js := assets.JS(); js != "" {
		tag := "<script data-liquidforge-assets>" + js + "</script>"
		if i := strings.LastIndex(page, "</body>"); i >= 0 {
			page = page[:i] + tag + "\n" + page[i:]
		} else {
			page = page + "\n" + tag
		}
	}
	return page
}

// pageQualifier encodes the query parameters that change the rendered
// page, so variants never share a cache entry.
func pageQualifier(opts RequestOptions) string {
	q := url.Values{}
	if opts.Token != "" {
		q.Set("token", opts.Token)
	}
	if opts.SearchQuery != "" {
		q.Set("q", opts.SearchQuery)
	}
	return q.Encode()
}

func renderCacheKey(desc PageDescriptor, storeID string) string {
	handle := desc.Handle
	if handle == "" {
		handle = desc.TemplateName
	}
	return fmt.Sprintf("%s_%s_%s_%d", desc.PageType, storeID, handle, time.Now().Unix())
}

func (r *Renderer) canonicalBase(domain string) string {
	if r.baseURL != "" {
		return strings.TrimSuffix(r.baseURL, "/")
	}
	if domain == "" {
		return ""
	}
	return "https://" + domain
}
