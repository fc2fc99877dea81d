package liquid

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid/render"
)

// snippetTag implements {% render 'name' %} and {% include 'name' %}.
// Both load snippets/{name}.liquid and render it against the page
// scope; render additionally accepts `key: value` arguments that bind
// inside the snippet only. A missing snippet degrades to a comment.
func (e *Engine) snippetTag(c render.Context) (string, error) {
	name, extras, err := parseSnippetArgs(c)
	if err != nil || name == "" {
		return "", nil
	}

	s := state(c)
	log := e.stateLogger(s)
	if s == nil || s.Sources == nil {
		return snippetMissing(name), nil
	}

	src, err := s.Sources.LoadSnippet(s.Ctx, s.StoreID, name)
	if err != nil {
		log.Warn(renderCtx(c), err, "snippet not found", "snippet", name, "store_id", s.StoreID)
		return snippetMissing(name), nil
	}

	bindings := make(map[string]any, len(s.Bindings)+len(extras))
	for k, v := range s.Bindings {
		bindings[k] = v
	}
	for k, v := range extras {
		bindings[k] = v
	}

	out, err := e.RenderSource(src, bindings, s)
	if err != nil {
		log.Warn(renderCtx(c), err, "snippet failed to render", "snippet", name, "store_id", s.StoreID)
		return fmt.Sprintf("<!-- snippet '%s' failed to render -->", name), nil
	}
	return out, nil
}

func snippetMissing(name string) string {
	return fmt.Sprintf("<!-- snippet '%s' not found -->", name)
}

// parseSnippetArgs splits `'name', key: expr, ...`, evaluating each
// argument expression in the caller's scope.
func parseSnippetArgs(c render.Context) (string, map[string]any, error) {
	parts := strings.Split(c.TagArgs(), ",")
	name := unquote(strings.TrimSpace(parts[0]))

	var extras map[string]any
	for _, part := range parts[1:] {
		key, expr, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		val, err := c.EvaluateString(strings.TrimSpace(expr))
		if err != nil {
			return "", nil, err
		}
		if extras == nil {
			extras = make(map[string]any)
		}
		extras[key] = val
	}
	return name, extras, nil
}
