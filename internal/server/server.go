// Package server exposes the rendering pipeline over HTTP: storefront
// pages keyed by Host header, health and metrics endpoints, and the
// development live-reload socket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/metrics"
	"github.com/fasttify/liquidforge/internal/renderer"
)

// Options configures the HTTP server.
type Options struct {
	Addr     string
	Renderer *renderer.Renderer
	Metrics  *metrics.Metrics
	// LiveReload enables the dev reload socket and script injection.
	// Leave nil in production.
	LiveReload *LiveReload
	Logger     logging.Logger
	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration
}

// Server serves rendered storefront pages.
type Server struct {
	addr       string
	renderer   *renderer.Renderer
	metrics    *metrics.Metrics
	livereload *LiveReload
	log        logging.Logger

	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// New creates the server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		addr:            opts.Addr,
		renderer:        opts.Renderer,
		metrics:         opts.Metrics,
		livereload:      opts.LiveReload,
		log:             opts.Logger.WithComponent("server"),
		shutdownTimeout: timeout,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	if s.livereload != nil {
		mux.HandleFunc("/__livereload", s.livereload.Handler())
	}
	mux.HandleFunc("/", s.handlePage)
	return s.withRequestLog(mux)
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handlePage renders the storefront page for the request host and path.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	opts := renderer.RequestOptions{
		Token:         r.URL.Query().Get("token"),
		PreviousToken: r.URL.Query().Get("previous_token"),
		SearchQuery:   r.URL.Query().Get("q"),
	}
	if cookie, err := r.Cookie("cart_id"); err == nil {
		opts.CartID = cookie.Value
	}

	result, err := s.renderer.RenderPage(r.Context(), r.Host, r.URL.Path, opts)
	if err != nil {
		// Only context cancellation reaches here; the client is gone
		// or out of time either way.
		s.log.Warn(r.Context(), err, "render aborted", "host", r.Host, "path", r.URL.Path)
		http.Error(w, "request timed out", http.StatusServiceUnavailable)
		return
	}

	html := result.HTML
	if s.livereload != nil {
		html = InjectScript(html)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheControl(result))
	w.WriteHeader(result.StatusCode)
	fmt.Fprint(w, html)
}

// cacheControl derives the response caching policy from the page's
// TTL. Error pages and zero-TTL pages (cart) are never cached.
func cacheControl(result *renderer.Result) string {
	if result.ErrorType != "" || result.CacheTTL <= 0 {
		return "no-store"
	}
	return fmt.Sprintf("public, max-age=%d", int(result.CacheTTL.Seconds()))
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug(r.Context(), "request",
			"method", r.Method, "host", r.Host, "path", r.URL.Path,
			"duration_ms", time.Since(started).Milliseconds())
	})
}
