package liquid

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	liq "github.com/osteele/liquid"

	"github.com/fasttify/liquidforge/internal/data"
)

// registerFilters installs the storefront filter set. Prices arrive in
// the bindings already formatted for the store's currency and locale,
// so the money filters pass formatted strings through untouched and
// only format raw numeric values, using USD as the display fallback.
func registerFilters(e *liq.Engine) {
	e.RegisterFilter("money", func(v any) string {
		return moneyString(v, false)
	})
	e.RegisterFilter("money_with_currency", func(v any) string {
		return moneyString(v, true)
	})
	e.RegisterFilter("handleize", func(s string) string {
		return data.Handleize(s)
	})
	e.RegisterFilter("json", func(v any) string {
		out, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(out)
	})
	e.RegisterFilter("asset_url", func(name string) string {
		return "/assets/" + strings.TrimPrefix(name, "/")
	})
	e.RegisterFilter("img_url", func(u string, size string) string {
		return imgURL(u, size)
	})
	e.RegisterFilter("link_to", func(label string, u string) string {
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(u), html.EscapeString(label))
	})
	e.RegisterFilter("default_pagination", func(v any) string {
		paginate, _ := v.(map[string]any)
		return defaultPagination(paginate)
	})
}

// moneyString formats numeric minor units, and passes through values
// the data layer already formatted.
func moneyString(v any, withCode bool) string {
	var amount int64
	switch n := v.(type) {
	case string:
		return n
	case int:
		amount = int64(n)
	case int64:
		amount = n
	case float64:
		amount = int64(n)
	default:
		return ""
	}
	formatted := data.FormatMoney(amount, "USD", "en")
	if withCode {
		return formatted + " USD"
	}
	return formatted
}

// imgURL appends a width constraint derived from a "300x300" style
// size name. "master" and empty sizes leave the url untouched.
func imgURL(u, size string) string {
	if u == "" || size == "" || size == "master" {
		return u
	}
	width, _, _ := strings.Cut(size, "x")
	if width == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "width=" + width
}
