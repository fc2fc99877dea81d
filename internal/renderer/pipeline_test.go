package renderer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttify/liquidforge/internal/analyzer"
	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/data"
	forgerrors "github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/liquid"
	"github.com/fasttify/liquidforge/internal/metrics"
	"github.com/fasttify/liquidforge/internal/storage"
	"github.com/fasttify/liquidforge/internal/tenant"
	"github.com/fasttify/liquidforge/internal/theme"
)

type staticDirectory struct {
	store *tenant.Store
}

func (d *staticDirectory) GetStoreByDomain(_ context.Context, domain string) (*tenant.Store, error) {
	if d.store != nil && d.store.CustomDomain == domain {
		return d.store, nil
	}
	return nil, nil
}

func (d *staticDirectory) GetStoreBySlug(_ context.Context, slug string) (*tenant.Store, error) {
	if d.store != nil && d.store.Slug == slug {
		return d.store, nil
	}
	return nil, nil
}

type harness struct {
	renderer *Renderer
	store    *storage.MemStore
	backend  *data.MemBackend
	cache    *cache.Manager
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st := &tenant.Store{
		ID:           "s1",
		Name:         "Test Shop",
		Slug:         "test",
		CustomDomain: "shop.example.com",
		Status:       "active",
		Currency:     "USD",
		Locale:       "en",
	}

	mem := storage.NewMemStore()
	mem.PutTemplate("s1", "layout/theme.liquid",
		`<html><head>{{ content_for_header }}</head><body>{{ content_for_layout }}</body></html>`)
	mem.PutTemplate("s1", "templates/index.liquid",
		`<main>{% section 'hero' %}</main>`)
	mem.PutTemplate("s1", "sections/hero.liquid",
		`<h1>{{ shop.name }}</h1>{% style %}.hero{color:red}{% endstyle %}`)
	mem.PutTemplate("s1", "templates/product.liquid",
		`<h1>{{ product.title }}</h1><span>{{ product.price }}</span>`)
	mem.PutTemplate("s1", "templates/404.liquid",
		`<h1>Not here</h1>`)

	backend := data.NewMemBackend()
	backend.SeedProduct("s1", data.Product{
		ID: "p1", Title: "Red Shirt", Handle: "red-shirt",
		Price: 1999, Currency: "USD", Status: "active", Quantity: 3,
	})
	backend.SeedMenu("s1", data.NavigationMenu{Handle: "main-menu", Title: "Main"})

	mx := metrics.New()
	c := cache.NewManager(cache.WithMetrics(mx))
	engine := liquid.NewEngine(nil)
	themes := theme.NewLoader(theme.Options{
		Primary: mem,
		Cache:   c,
		Parser:  engine,
	})

	r := New(Options{
		Resolver: tenant.NewResolver(&staticDirectory{store: st}, c, ".myshops.dev", nil),
		Themes:   themes,
		Analyzer: analyzer.New(themes, nil),
		Data:     data.NewLoader(backend, c, nil),
		Engine:   engine,
		Cache:    c,
		Metrics:  mx,
	})
	return &harness{renderer: r, store: mem, backend: backend, cache: c, metrics: mx}
}

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		path     string
		pageType string
		handle   string
	}{
		{"/", "index", ""},
		{"/products/red-shirt", "product", "red-shirt"},
		{"/product/red-shirt", "product", "red-shirt"},
		{"/collections/summer", "collection", "summer"},
		{"/collections", "collections", ""},
		{"/pages/about-us", "page", "about-us"},
		{"/blogs/news", "blog", "news"},
		{"/policies", "policies", ""},
		{"/search", "search", ""},
		{"/cart", "cart", ""},
		{"/404", "404", ""},
		{"/no/such/route", "404", ""},
		{"/cart?token=abc", "cart", ""},
	}
	for _, tt := range tests {
		desc := MatchRoute(tt.path)
		assert.Equal(t, tt.pageType, desc.PageType, "path %q", tt.path)
		assert.Equal(t, tt.handle, desc.Handle, "path %q", tt.path)
	}
}

func TestRender_IndexEndToEnd(t *testing.T) {
	h := newHarness(t)

	result, err := h.renderer.Render(context.Background(), "shop.example.com", "/", RequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.Contains(t, result.HTML, "<h1>Test Shop</h1>", "section rendered with shop context")
	assert.Contains(t, result.HTML, "<title>Test Shop</title>", "head metadata injected")
	assert.Contains(t, result.HTML, ".hero{color:red}", "collected styles injected")
	assert.Contains(t, result.HTML, "</html>")
	assert.Contains(t, result.CacheKey, "index_s1_")
	assert.Equal(t, h.cache.PageTTL("index"), result.CacheTTL)
}

func TestRender_ProductPage(t *testing.T) {
	h := newHarness(t)

	result, err := h.renderer.Render(context.Background(), "shop.example.com", "/products/red-shirt", RequestOptions{})
	require.NoError(t, err)

	assert.Contains(t, result.HTML, "<h1>Red Shirt</h1>")
	assert.Contains(t, result.HTML, "19.99")
	assert.Equal(t, "Red Shirt | Test Shop", result.Metadata.Title)
	assert.Equal(t, "Product", result.Metadata.SchemaOrg["@type"])
}

func TestRender_UnknownDomain(t *testing.T) {
	h := newHarness(t)

	_, err := h.renderer.Render(context.Background(), "ghost.example.com", "/", RequestOptions{})
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrStoreNotFound))
}

func TestRender_MissingProductIs404(t *testing.T) {
	h := newHarness(t)

	_, err := h.renderer.Render(context.Background(), "shop.example.com", "/products/ghost", RequestOptions{})
	require.Error(t, err)
	assert.True(t, forgerrors.IsNotFound(err))
}

func TestRender_PageCacheHit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.renderer.Render(ctx, "shop.example.com", "/products/red-shirt", RequestOptions{})
	require.NoError(t, err)
	fetches := h.store.GetCount()

	_, err = h.renderer.Render(ctx, "shop.example.com", "/products/red-shirt", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, fetches, h.store.GetCount(), "second render served from the page cache")
}

func TestRender_SearchQueriesCachedSeparately(t *testing.T) {
	h := newHarness(t)
	h.store.PutTemplate("s1", "templates/search.liquid", `<p>results for {{ search.terms }}</p>`)
	ctx := context.Background()

	first, err := h.renderer.Render(ctx, "shop.example.com", "/search", RequestOptions{SearchQuery: "shoes"})
	require.NoError(t, err)
	assert.Contains(t, first.HTML, "results for shoes")

	second, err := h.renderer.Render(ctx, "shop.example.com", "/search", RequestOptions{SearchQuery: "hats"})
	require.NoError(t, err)
	assert.Contains(t, second.HTML, "results for hats")

	repeat, err := h.renderer.Render(ctx, "shop.example.com", "/search", RequestOptions{SearchQuery: "shoes"})
	require.NoError(t, err)
	assert.Contains(t, repeat.HTML, "results for shoes")
}

func TestRender_PageLookupCountedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.renderer.Render(ctx, "shop.example.com", "/products/red-shirt", RequestOptions{})
	require.NoError(t, err)
	_, err = h.renderer.Render(ctx, "shop.example.com", "/products/red-shirt", RequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheMisses.WithLabelValues("page")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheHits.WithLabelValues("page")))
}

func TestRender_CartNeverCached(t *testing.T) {
	h := newHarness(t)
	h.store.PutTemplate("s1", "templates/cart.liquid", `<p>{{ cart.item_count }}</p>`)
	ctx := context.Background()

	result, err := h.renderer.Render(ctx, "shop.example.com", "/cart", RequestOptions{})
	require.NoError(t, err)
	assert.Zero(t, result.CacheTTL)

	backendCalls := h.backend.Calls.GetCart.Load()
	_, err = h.renderer.Render(ctx, "shop.example.com", "/cart", RequestOptions{CartID: "none"})
	require.NoError(t, err)
	assert.Greater(t, h.backend.Calls.GetCart.Load(), backendCalls, "cart pages hit the backend every time")
}

func TestRenderPage_ErrorPathRendersThemed404(t *testing.T) {
	h := newHarness(t)

	result, err := h.renderer.RenderPage(context.Background(), "shop.example.com", "/products/ghost", RequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 404, result.StatusCode)
	assert.Equal(t, forgerrors.ErrData, result.ErrorType)
	assert.Contains(t, result.HTML, "Not here", "themed 404 template used")
}

func TestRenderPage_UnknownDomainGetsGenericPage(t *testing.T) {
	h := newHarness(t)

	result, err := h.renderer.RenderPage(context.Background(), "ghost.example.com", "/", RequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 404, result.StatusCode)
	assert.Equal(t, forgerrors.ErrStoreNotFound, result.ErrorType)
	assert.Contains(t, result.HTML, "Store not found")
}

func TestRender_ConfigDrivenPage(t *testing.T) {
	h := newHarness(t)
	h.store.PutTemplate("s1", "templates/page.json",
		`{"sections":{"main-1":{"type":"hero","settings":{"title":"Config"}}},"order":["main-1"]}`)

	result, err := h.renderer.Render(context.Background(), "shop.example.com", "/pages/about", RequestOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "<h1>Test Shop</h1>", "configured section rendered")
}

func TestInjectAssets(t *testing.T) {
	assets := liquid.NewAssetCollector()
	assets.AddCSS("s1", ".a{}")
	assets.AddJS("s1", "go()")

	out := injectAssets("<html><head></head><body>x</body></html>", assets)
	assert.Contains(t, out, "<style data-liquidforge-assets>.a{}</style></head>")
	assert.Contains(t, out, "<script data-liquidforge-assets>go()</script></body>")

	plain := injectAssets("no tags here", assets)
	assert.Contains(t, plain, ".a{}")
	assert.Contains(t, plain, "go()")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", StripHTML("<p>Hello <b>world</b></p>"))
	assert.Equal(t, "", StripHTML(""))
}
