package renderer

import "strings"

// PageDescriptor identifies what kind of page a request path maps to
// and which template renders it.
type PageDescriptor struct {
	// PageType drives data inference, cache TTL selection and metadata.
	PageType string
	// TemplateName is the base name under templates/, without extension.
	TemplateName string
	// Handle is the identifying handle captured from the path, if any.
	Handle string
}

type route struct {
	segments []string
	pageType string
	template string
}

// routes is matched in order; first match wins. The singular aliases
// are legacy paths older themes still link to.
var routes = []route{
	{[]string{}, "index", "index"},
	{[]string{"products", ":handle"}, "product", "product"},
	{[]string{"product", ":handle"}, "product", "product"},
	{[]string{"collections", ":handle"}, "collection", "collection"},
	{[]string{"collection", ":handle"}, "collection", "collection"},
	{[]string{"collections"}, "collections", "list-collections"},
	{[]string{"pages", ":handle"}, "page", "page"},
	{[]string{"blogs", ":handle"}, "blog", "blog"},
	{[]string{"policies"}, "policies", "policies"},
	{[]string{"search"}, "search", "search"},
	{[]string{"cart"}, "cart", "cart"},
	{[]string{"404"}, "404", "404"},
}

var notFoundDescriptor = PageDescriptor{PageType: "404", TemplateName: "404"}

// MatchRoute maps a request path to its page descriptor. Unmatched
// paths get the 404 descriptor.
func MatchRoute(path string) PageDescriptor {
	parts := splitPath(path)

	for _, r := range routes {
		if len(parts) != len(r.segments) {
			continue
		}
		handle := ""
		matched := true
		for i, seg := range r.segments {
			if seg == ":handle" {
				if parts[i] == "" {
					matched = false
					break
				}
				handle = parts[i]
				continue
			}
			if seg != parts[i] {
				matched = false
				break
			}
		}
		if matched {
			return PageDescriptor{PageType: r.pageType, TemplateName: r.template, Handle: handle}
		}
	}
	return notFoundDescriptor
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
