package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttify/liquidforge/internal/analyzer"
	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/data"
	"github.com/fasttify/liquidforge/internal/liquid"
	"github.com/fasttify/liquidforge/internal/metrics"
	"github.com/fasttify/liquidforge/internal/renderer"
	"github.com/fasttify/liquidforge/internal/storage"
	"github.com/fasttify/liquidforge/internal/tenant"
	"github.com/fasttify/liquidforge/internal/theme"
)

type testDirectory struct {
	store *tenant.Store
}

func (d *testDirectory) GetStoreByDomain(_ context.Context, domain string) (*tenant.Store, error) {
	if d.store.CustomDomain == domain {
		return d.store, nil
	}
	return nil, nil
}

func (d *testDirectory) GetStoreBySlug(_ context.Context, slug string) (*tenant.Store, error) {
	if d.store.Slug == slug {
		return d.store, nil
	}
	return nil, nil
}

func newTestServer(t *testing.T, livereload *LiveReload) *Server {
	t.Helper()

	st := &tenant.Store{
		ID: "s1", Name: "Test Shop", Slug: "test",
		CustomDomain: "shop.example.com", Status: "active",
		Currency: "USD", Locale: "en",
	}

	mem := storage.NewMemStore()
	mem.PutTemplate("s1", "layout/theme.liquid",
		`<html><head>{{ content_for_header }}</head><body>{{ content_for_layout }}</body></html>`)
	mem.PutTemplate("s1", "templates/index.liquid", `<main>{{ shop.name }}</main>`)

	c := cache.NewManager()
	engine := liquid.NewEngine(nil)
	themes := theme.NewLoader(theme.Options{Primary: mem, Cache: c, Parser: engine})

	m := metrics.New()
	r := renderer.New(renderer.Options{
		Resolver: tenant.NewResolver(&testDirectory{store: st}, c, ".myshops.dev", nil),
		Themes:   themes,
		Analyzer: analyzer.New(themes, nil),
		Data:     data.NewLoader(data.NewMemBackend(), c, nil),
		Engine:   engine,
		Cache:    c,
		Metrics:  m,
	})

	return New(Options{
		Addr:       "127.0.0.1:0",
		Renderer:   r,
		Metrics:    m,
		LiveReload: livereload,
	})
}

func TestServer_RendersStorefrontPage(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.Host = "shop.example.com"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "<main>Test Shop</main>")
	assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestServer_UnknownDomain404(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.Host = "ghost.example.com"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Render once so counters exist.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.Host = "shop.example.com"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "liquidforge_render_duration_seconds")
}

func TestServer_LiveReloadScriptInjected(t *testing.T) {
	srv := newTestServer(t, NewLiveReload(nil))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.Host = "shop.example.com"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/__livereload")
}

func TestLiveReload_BroadcastReachesClient(t *testing.T) {
	lr := NewLiveReload(nil)
	ts := httptest.NewServer(lr.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Let the server register the connection before broadcasting.
	time.Sleep(100 * time.Millisecond)
	lr.Broadcast(ctx, []string{"sections/hero.liquid"})

	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"reload"`)
	assert.Contains(t, string(payload), "sections/hero.liquid")
}

func TestInjectScript(t *testing.T) {
	out := InjectScript("<html><body>x</body></html>")
	assert.Contains(t, out, "__livereload")
	assert.True(t, strings.Index(out, "</body>") > strings.Index(out, "__livereload"))
}
