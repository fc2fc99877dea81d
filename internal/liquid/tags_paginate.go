package liquid

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/osteele/liquid/render"
)

var rePaginateArgs = regexp.MustCompile(`(?i)^\s*(\S+)\s+by\s+(\d+)\s*$`)

// paginateTag exposes a paginate object for the duration of the block.
// It never fetches data: the collection was already loaded before the
// render, and page movement happens through continuation tokens passed
// in the bindings (current_token, next_token, previous_token). Any
// problem degrades to rendering the body without pagination context.
func (e *Engine) paginateTag(c render.Context) (string, error) {
	log := e.stateLogger(state(c))

	m := rePaginateArgs.FindStringSubmatch(c.TagArgs())
	if m == nil {
		log.Warn(renderCtx(c), nil, "malformed paginate tag, rendering unpaginated",
			"args", c.TagArgs())
		return e.renderInner(c)
	}
	perPage, err := strconv.Atoi(m[2])
	if err != nil || perPage <= 0 {
		return e.renderInner(c)
	}

	paginate := map[string]any{
		"current_page":   1,
		"items_per_page": perPage,
		"parts":          []any{},
	}

	currentToken, _ := c.Get("current_token").(string)
	nextToken, _ := c.Get("next_token").(string)
	previousToken, _ := c.Get("previous_token").(string)

	if nextToken != "" {
		q := url.Values{}
		q.Set("token", nextToken)
		if currentToken != "" {
			q.Set("previous_token", currentToken)
		}
		paginate["next"] = map[string]any{
			"is_link": true,
			"title":   "Next »",
			"url":     "?" + q.Encode(),
		}
	}
	if previousToken != "" {
		q := url.Values{}
		q.Set("token", previousToken)
		paginate["previous"] = map[string]any{
			"is_link": true,
			"title":   "« Previous",
			"url":     "?" + q.Encode(),
		}
	}

	// Scope the paginate object to the block body and restore whatever
	// was bound before on every exit path.
	outer := c.Get("paginate")
	c.Set("paginate", paginate)
	defer c.Set("paginate", outer)

	return e.renderInner(c)
}

// renderInner renders the block body, swallowing errors so a broken
// body inside paginate never aborts the page.
func (e *Engine) renderInner(c render.Context) (string, error) {
	body, err := c.InnerString()
	if err != nil {
		e.stateLogger(state(c)).Warn(renderCtx(c), err, "paginate body failed to render",
			"tag", c.TagName())
		return "", nil
	}
	return body, nil
}

// defaultPagination renders a minimal prev/next control from a
// paginate object, mirroring the default_pagination filter.
func defaultPagination(paginate map[string]any) string {
	if paginate == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="pagination">`)
	if prev, ok := paginate["previous"].(map[string]any); ok {
		fmt.Fprintf(&b, `<span class="prev"><a href="%s">%s</a></span>`, prev["url"], prev["title"])
	}
	if next, ok := paginate["next"].(map[string]any); ok {
		fmt.Fprintf(&b, `<span class="next"><a href="%s">%s</a></span>`, next["url"], next["title"])
	}
	b.WriteString(`</div>`)
	return b.String()
}
