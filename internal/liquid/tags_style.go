package liquid

import (
	"github.com/osteele/liquid/render"
)

// styleTag implements {% style %} and {% stylesheet %}: the body is
// rendered as Liquid (so settings interpolate into CSS), and the
// result is handed to the asset collector keyed by the section being
// rendered. Nothing is emitted inline; the renderer injects the
// combined stylesheet into the document head. Errors are swallowed so
// a bad style block never breaks the page.
func (e *Engine) styleTag(c render.Context) (string, error) {
	css, err := c.InnerString()
	if err != nil {
		e.stateLogger(state(c)).Warn(renderCtx(c), err, "style block failed to render", "tag", c.TagName())
		return "", nil
	}

	s := state(c)
	if s == nil || s.Assets == nil {
		return "", nil
	}
	s.Assets.AddCSS(s.CurrentSectionID, css)
	return "", nil
}

// javascriptTag collects {% javascript %} blocks the same way, bundled
// into a single script injected before the closing body tag.
func (e *Engine) javascriptTag(c render.Context) (string, error) {
	js, err := c.InnerString()
	if err != nil {
		e.stateLogger(state(c)).Warn(renderCtx(c), err, "javascript block failed to render")
		return "", nil
	}

	s := state(c)
	if s == nil || s.Assets == nil {
		return "", nil
	}
	s.Assets.AddJS(s.CurrentSectionID, js)
	return "", nil
}

// schemaTag swallows {% schema %} blocks. Schema JSON configures the
// theme editor and plays no part in rendering.
func (e *Engine) schemaTag(render.Context) (string, error) {
	return "", nil
}
