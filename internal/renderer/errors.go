package renderer

import (
	"context"
	"fmt"
	"html"

	"github.com/fasttify/liquidforge/internal/data"
	forgerrors "github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/liquid"
)

// RenderPage runs the pipeline and converts failures into rendered
// error pages, so the HTTP layer always has a page to serve. The error
// return is reserved for context cancellation, where there is nothing
// useful left to render.
func (r *Renderer) RenderPage(ctx context.Context, domain, path string, opts RequestOptions) (*Result, error) {
	result, err := r.Render(ctx, domain, path, opts)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return r.renderErrorPage(ctx, domain, err), nil
}

// renderErrorPage produces the user-facing page for a pipeline error:
// a themed page when the store resolved and its theme carries one, a
// built-in page otherwise.
func (r *Renderer) renderErrorPage(ctx context.Context, domain string, cause error) *Result {
	re := forgerrors.Wrap(cause, "page render failed")
	r.log.Warn(ctx, cause, "rendering error page",
		"domain", domain, "error_type", string(re.Type), "status", re.StatusCode)

	result := &Result{
		StatusCode: re.StatusCode,
		ErrorType:  re.Type,
		Metadata:   Metadata{Title: errorTitle(re)},
	}

	// Store-level failures have no theme to render from.
	if re.Type != forgerrors.ErrStoreNotFound && re.Type != forgerrors.ErrStoreNotActive {
		if html, ok := r.renderThemedError(ctx, domain, re); ok {
			result.HTML = html
			return result
		}
	}
	result.HTML = genericErrorPage(re)
	return result
}

// renderThemedError tries the theme's own error template. 404-class
// errors use templates/404.liquid; everything else templates/error.liquid.
func (r *Renderer) renderThemedError(ctx context.Context, domain string, re *forgerrors.RenderError) (string, bool) {
	store, err := r.resolver.ResolveStore(ctx, domain)
	if err != nil {
		return "", false
	}

	name := "error"
	if re.StatusCode == 404 {
		name = "404"
	}
	src, err := r.themes.LoadRaw(ctx, store.ID, "templates/"+name+".liquid")
	if err != nil {
		return "", false
	}

	state := &liquid.RenderState{
		Ctx:     ctx,
		StoreID: store.ID,
		Locale:  store.Locale,
		Sources: r.themes,
		Assets:  liquid.NewAssetCollector(),
		Log:     r.log,
	}
	bindings := map[string]any{
		"shop":          data.ShopContext(store),
		"error_message": re.Message,
		"error_type":    string(re.Type),
		"page_type":     name,
	}

	out, err := r.engine.RenderSource(src, bindings, state)
	if err != nil {
		r.log.Warn(ctx, err, "error template failed to render",
			"store_id", store.ID, "template", name)
		return "", false
	}

	if layout, lerr := r.themes.LoadLayout(ctx, store.ID); lerr == nil {
		bindings["content_for_layout"] = out
		bindings["content_for_header"] = headHTML(Metadata{Title: errorTitle(re)})
		if page, perr := r.engine.RenderSource(layout, bindings, state); perr == nil {
			return injectAssets(page, state.Assets), true
		}
	}
	return injectAssets(out, state.Assets), true
}

func errorTitle(re *forgerrors.RenderError) string {
	switch re.Type {
	case forgerrors.ErrStoreNotFound:
		return "Store not found"
	case forgerrors.ErrStoreNotActive:
		return "Store unavailable"
	case forgerrors.ErrTemplateNotFound:
		return "Page not found"
	case forgerrors.ErrData:
		if re.StatusCode == 404 {
			return "Page not found"
		}
		return "Something went wrong"
	default:
		return "Something went wrong"
	}
}

// genericErrorPage is the last-resort page when no theme is available.
func genericErrorPage(re *forgerrors.RenderError) string {
	title := errorTitle(re)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), html.EscapeString(publicMessage(re)))
}

// publicMessage keeps backend detail out of user-facing pages.
func publicMessage(re *forgerrors.RenderError) string {
	switch {
	case re.StatusCode == 404:
		return "The page you were looking for could not be found."
	case re.Type == forgerrors.ErrStoreNotActive:
		return "This store is temporarily unavailable."
	default:
		return "An unexpected error occurred while loading this page."
	}
}
