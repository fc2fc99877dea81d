package data

import (
	"regexp"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Transforms convert backend records into the shapes templates see.
// All of them are pure: no I/O, no clock, no randomness.

var handleStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Handleize derives a URL slug from a title: lowercase, non-alphanumeric
// runs collapsed to single hyphens, trimmed.
func Handleize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = handleStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FormatMoney renders a minor-unit amount as a localized currency
// string, e.g. FormatMoney(1999, "USD", "en") == "$19.99".
func FormatMoney(amount int64, currencyCode, locale string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}

	scale, _ := currency.Cash.Rounding(unit)
	major := float64(amount)
	for i := 0; i < scale; i++ {
		major /= 10
	}

	p := message.NewPrinter(tag)
	return p.Sprint(currency.NarrowSymbol(unit.Amount(major)))
}

// ProductContext converts a product into its template shape.
func ProductContext(p *Product, locale string) map[string]any {
	handle := p.Handle
	if handle == "" {
		handle = Handleize(p.Title)
	}

	variants := make([]map[string]any, 0, len(p.Variants))
	available := p.Status == "active" && p.Quantity != 0
	for _, v := range p.Variants {
		variants = append(variants, map[string]any{
			"id":        v.ID,
			"title":     v.Title,
			"price":     FormatMoney(v.Price, p.Currency, locale),
			"available": v.Available,
			"sku":       v.SKU,
		})
		if v.Available {
			available = true
		}
	}

	images := p.Images
	if images == nil {
		images = []string{}
	}
	var featured string
	if len(images) > 0 {
		featured = images[0]
	}

	ctx := map[string]any{
		"id":             p.ID,
		"title":          p.Title,
		"handle":         handle,
		"url":            "/products/" + handle,
		"description":    p.Description,
		"vendor":         p.Vendor,
		"price":          FormatMoney(p.Price, p.Currency, locale),
		"price_raw":      p.Price,
		"currency":       p.Currency,
		"images":         images,
		"featured_image": featured,
		"variants":       variants,
		"tags":           p.Tags,
		"available":      available,
	}
	if p.CompareAtPrice > 0 {
		ctx["compare_at_price"] = FormatMoney(p.CompareAtPrice, p.Currency, locale)
		ctx["compare_at_price_raw"] = p.CompareAtPrice
	}
	return ctx
}

// ProductContexts maps a slice of products.
func ProductContexts(products []Product, locale string) []map[string]any {
	out := make([]map[string]any, 0, len(products))
	for i := range products {
		out = append(out, ProductContext(&products[i], locale))
	}
	return out
}

// CollectionContext converts a collection into its template shape.
func CollectionContext(c *Collection) map[string]any {
	handle := c.Handle
	if handle == "" {
		handle = Handleize(c.Title)
	}
	return map[string]any{
		"id":          c.ID,
		"title":       c.Title,
		"handle":      handle,
		"url":         "/collections/" + handle,
		"description": c.Description,
		"image":       c.Image,
	}
}

// CollectionContexts maps a slice of collections.
func CollectionContexts(collections []Collection) []map[string]any {
	out := make([]map[string]any, 0, len(collections))
	for i := range collections {
		out = append(out, CollectionContext(&collections[i]))
	}
	return out
}

// PageContext converts a content page into its template shape.
func PageContext(p *Page) map[string]any {
	handle := p.Handle
	if handle == "" {
		handle = Handleize(p.Title)
	}
	return map[string]any{
		"id":      p.ID,
		"title":   p.Title,
		"handle":  handle,
		"url":     "/pages/" + handle,
		"content": p.Body,
	}
}

// PolicyContext converts a policy document.
func PolicyContext(p *Policy) map[string]any {
	return map[string]any{
		"handle": p.Handle,
		"title":  p.Title,
		"body":   p.Body,
		"url":    "/policies/" + p.Handle,
	}
}

// CartContext converts a cart into its template shape.
func CartContext(c *Cart, locale string) map[string]any {
	items := make([]map[string]any, 0, len(c.Items))
	count := 0
	for _, it := range c.Items {
		items = append(items, map[string]any{
			"product_id": it.ProductID,
			"variant_id": it.VariantID,
			"title":      it.Title,
			"quantity":   it.Quantity,
			"price":      FormatMoney(it.Price, c.Currency, locale),
			"line_price": FormatMoney(it.Price*int64(it.Quantity), c.Currency, locale),
			"image":      it.Image,
		})
		count += it.Quantity
	}
	return map[string]any{
		"id":          c.ID,
		"items":       items,
		"item_count":  count,
		"total_price": FormatMoney(c.TotalPrice, c.Currency, locale),
	}
}

// MenuContext converts a navigation menu, keyed for linklists access.
func MenuContext(m *NavigationMenu) map[string]any {
	return map[string]any{
		"handle": m.Handle,
		"title":  m.Title,
		"links":  navItems(m.Items),
	}
}

func navItems(items []NavItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"title":  it.Title,
			"url":    it.URL,
			"active": it.Active,
			"links":  navItems(it.Items),
		})
	}
	return out
}

// LinklistsContext builds the linklists map from menus: each menu is
// addressable by handle.
func LinklistsContext(menus []NavigationMenu) map[string]any {
	out := make(map[string]any, len(menus))
	for i := range menus {
		out[menus[i].Handle] = MenuContext(&menus[i])
	}
	return out
}
