package liquid

import (
	"context"

	liq "github.com/osteele/liquid"
	"github.com/osteele/liquid/render"

	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/theme"
)

// stateKey is the reserved binding under which per-render state
// travels through the template. Themes never reference it.
const stateKey = "__forge_state"

// SourceLoader fetches section and snippet source for the tags that
// pull in other template files mid-render.
type SourceLoader interface {
	LoadSection(ctx context.Context, storeID, name string) (string, error)
	LoadSnippet(ctx context.Context, storeID, name string) (string, error)
}

// RenderState carries everything a single render needs beyond the
// template bindings: where to load referenced templates from, which
// store is rendering, and where produced assets accumulate. Tags read
// it back out of the bindings on each invocation.
type RenderState struct {
	Ctx      context.Context
	StoreID  string
	Locale   string
	Sources  SourceLoader
	Config   *theme.TemplateConfig

	// Preloaded maps section names to source fetched ahead of the
	// render, so the section tag avoids a per-tag load round trip.
	Preloaded map[string]string

	Assets *AssetCollector

	// CurrentSectionID scopes style/javascript output while a section
	// renders. Empty outside sections.
	CurrentSectionID string

	// Bindings is the full binding set of the active render. Section
	// and snippet tags re-render loaded source against it, since the
	// engine does not expose the live scope.
	Bindings map[string]any

	Log logging.Logger
}

// Engine wraps a shared template engine with the storefront tag and
// filter set registered once. Parsed templates are safe to render
// concurrently; per-render state rides in the bindings.
type Engine struct {
	inner *liq.Engine
	log   logging.Logger
}

// NewEngine builds the engine and registers all tags and filters.
func NewEngine(log logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	e := &Engine{inner: liq.NewEngine(), log: log}

	registerFilters(e.inner)

	e.inner.RegisterBlock("paginate", e.paginateTag)
	e.inner.RegisterBlock("form", e.formTag)
	e.inner.RegisterBlock("style", e.styleTag)
	e.inner.RegisterBlock("stylesheet", e.styleTag)
	e.inner.RegisterBlock("javascript", e.javascriptTag)
	e.inner.RegisterBlock("schema", e.schemaTag)
	e.inner.RegisterTag("section", e.sectionTag)
	e.inner.RegisterTag("render", e.snippetTag)
	e.inner.RegisterTag("include", e.snippetTag)

	return e
}

// ParseTemplate compiles template source. Satisfies theme.Parser so
// the theme loader can cache compiled templates.
func (e *Engine) ParseTemplate(src []byte) (*liq.Template, error) {
	return e.inner.ParseTemplate(src)
}

// Render executes a compiled template with the given bindings and
// per-render state.
func (e *Engine) Render(tmpl *liq.Template, bindings map[string]any, state *RenderState) (string, error) {
	merged := withState(bindings, state)
	out, err := tmpl.Render(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderSource parses and renders source in one step. Used for
// section and snippet source loaded mid-render.
func (e *Engine) RenderSource(src string, bindings map[string]any, state *RenderState) (string, error) {
	merged := withState(bindings, state)
	out, err := e.inner.ParseAndRender([]byte(src), merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// withState copies bindings and threads the state through, keeping the
// state's Bindings field in sync so nested renders see the full scope.
func withState(bindings map[string]any, state *RenderState) liq.Bindings {
	merged := make(liq.Bindings, len(bindings)+1)
	for k, v := range bindings {
		merged[k] = v
	}
	if state != nil {
		if state.Bindings == nil {
			state.Bindings = bindings
		}
		merged[stateKey] = state
	}
	return merged
}

// state retrieves the render state a tag is executing under. Tags
// degrade to inert output when no state was provided, which keeps
// bare-engine tests and previews working.
func state(c render.Context) *RenderState {
	s, _ := c.Get(stateKey).(*RenderState)
	return s
}

// renderCtx returns the request context the tag is rendering under,
// or a background context when none was threaded through.
func renderCtx(c render.Context) context.Context {
	if s := state(c); s != nil && s.Ctx != nil {
		return s.Ctx
	}
	return context.Background()
}

// stateLogger never returns nil so tags can log unconditionally.
func (e *Engine) stateLogger(s *RenderState) logging.Logger {
	if s != nil && s.Log != nil {
		return s.Log
	}
	return e.log
}
