package renderer

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/fasttify/liquidforge/internal/tenant"
)

const maxDescriptionLength = 160

// Metadata holds the SEO fields derived for a rendered page.
type Metadata struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Canonical   string            `json:"canonical"`
	OpenGraph   map[string]string `json:"openGraph"`
	SchemaOrg   map[string]any    `json:"schemaOrg"`
}

// buildMetadata derives SEO metadata from the store, the matched page
// and the loaded bindings.
func buildMetadata(store *tenant.Store, desc PageDescriptor, bindings map[string]any, baseURL, path string) Metadata {
	md := Metadata{
		Title:       store.Name,
		Description: truncate(StripHTML(store.Description), maxDescriptionLength),
		OpenGraph:   map[string]string{"og:type": "website", "og:site_name": store.Name},
		SchemaOrg: map[string]any{
			"@context": "https://schema.org",
			"@type":    "WebSite",
			"name":     store.Name,
		},
	}
	if baseURL != "" {
		md.Canonical = strings.TrimSuffix(baseURL, "/") + path
	}

	switch desc.PageType {
	case "product":
		if product, ok := bindings["product"].(map[string]any); ok {
			title, _ := product["title"].(string)
			md.Title = title + " | " + store.Name
			if d, ok := product["description"].(string); ok && d != "" {
				md.Description = truncate(StripHTML(d), maxDescriptionLength)
			}
			md.OpenGraph["og:type"] = "product"
			if img, ok := product["featured_image"].(string); ok && img != "" {
				md.OpenGraph["og:image"] = img
			}
			md.SchemaOrg = map[string]any{
				"@context": "https://schema.org",
				"@type":    "Product",
				"name":     title,
			}
			if price, ok := product["price_raw"].(int64); ok {
				md.SchemaOrg["offers"] = map[string]any{
					"@type":         "Offer",
					"price":         fmt.Sprintf("%.2f", float64(price)/100),
					"priceCurrency": store.Currency,
				}
			}
		}
	case "collection":
		if collection, ok := bindings["collection"].(map[string]any); ok {
			title, _ := collection["title"].(string)
			md.Title = title + " | " + store.Name
			if d, ok := collection["description"].(string); ok && d != "" {
				md.Description = truncate(StripHTML(d), maxDescriptionLength)
			}
		}
	case "page":
		if page, ok := bindings["page"].(map[string]any); ok {
			title, _ := page["title"].(string)
			md.Title = title + " | " + store.Name
			if body, ok := page["body"].(string); ok {
				md.Description = truncate(StripHTML(body), maxDescriptionLength)
			}
		}
	case "search":
		md.Title = "Search | " + store.Name
	case "cart":
		md.Title = "Cart | " + store.Name
	case "404":
		md.Title = "Page not found | " + store.Name
	}

	md.OpenGraph["og:title"] = md.Title
	if md.Description != "" {
		md.OpenGraph["og:description"] = md.Description
	}
	if md.Canonical != "" {
		md.OpenGraph["og:url"] = md.Canonical
	}
	if _, ok := md.OpenGraph["og:image"]; !ok && store.Logo != "" {
		md.OpenGraph["og:image"] = store.Logo
	}
	return md
}

// headHTML renders the metadata as head markup for content_for_header.
func headHTML(md Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(md.Title))
	if md.Description != "" {
		fmt.Fprintf(&b, "<meta name=\"description\" content=\"%s\" />\n", html.EscapeString(md.Description))
	}
	if md.Canonical != "" {
		fmt.Fprintf(&b, "<link rel=\"canonical\" href=\"%s\" />\n", html.EscapeString(md.Canonical))
	}
	for _, k := range sortedKeys(md.OpenGraph) {
		fmt.Fprintf(&b, "<meta property=\"%s\" content=\"%s\" />\n", k, html.EscapeString(md.OpenGraph[k]))
	}
	if len(md.SchemaOrg) > 0 {
		if out, err := json.Marshal(md.SchemaOrg); err == nil {
			fmt.Fprintf(&b, "<script type=\"application/ld+json\">%s</script>\n", out)
		}
	}
	return b.String()
}

// StripHTML extracts the text content of an HTML fragment.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	var b strings.Builder
	tokenizer := xhtml.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := tokenizer.Next()
		if tt == xhtml.ErrorToken {
			break
		}
		if tt == xhtml.TextToken {
			b.Write(tokenizer.Text())
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
