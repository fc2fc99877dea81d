package data

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Red Shirt", "red-shirt"},
		{"  Red   Shirt  ", "red-shirt"},
		{"Café Olé!", "caf-ol"},
		{"UPPER_case-mix", "upper-case-mix"},
		{"---", ""},
		{"2024 Summer Sale", "2024-summer-sale"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Handleize(tt.in), "input %q", tt.in)
	}
}

func TestFormatMoney(t *testing.T) {
	got := FormatMoney(1999, "USD", "en")
	assert.Contains(t, got, "19.99")
	assert.Contains(t, got, "$")

	got = FormatMoney(500, "EUR", "en")
	assert.Contains(t, got, "5.00")

	// Unknown currency falls back to USD rather than failing.
	got = FormatMoney(100, "???", "en")
	assert.Contains(t, got, "1.00")
}

func TestProductContext(t *testing.T) {
	p := &Product{
		ID:       "p1",
		Title:    "Red Shirt",
		Price:    1999,
		Currency: "USD",
		Status:   "active",
		Quantity: 3,
		Images:   []string{"a.jpg", "b.jpg"},
		Variants: []Variant{{ID: "v1", Title: "Small", Price: 1999, Available: true}},
		Tags:     []string{"sale"},
	}

	ctx := ProductContext(p, "en")
	assert.Equal(t, "red-shirt", ctx["handle"], "handle derived from title")
	assert.Equal(t, "/products/red-shirt", ctx["url"])
	assert.Equal(t, "a.jpg", ctx["featured_image"])
	assert.Equal(t, int64(1999), ctx["price_raw"])
	assert.Equal(t, true, ctx["available"])
	assert.True(t, strings.Contains(ctx["price"].(string), "19.99"))

	variants := ctx["variants"].([]map[string]any)
	require.Len(t, variants, 1)
	assert.Equal(t, "Small", variants[0]["title"])
}

func TestProductContext_ExplicitHandleWins(t *testing.T) {
	p := &Product{ID: "p1", Title: "Red Shirt", Handle: "custom-handle", Currency: "USD"}
	ctx := ProductContext(p, "en")
	assert.Equal(t, "custom-handle", ctx["handle"])
}

func TestCollectionContext(t *testing.T) {
	c := &Collection{ID: "c1", Title: "Summer Sale"}
	ctx := CollectionContext(c)
	assert.Equal(t, "summer-sale", ctx["handle"])
	assert.Equal(t, "/collections/summer-sale", ctx["url"])
}

func TestCartContext(t *testing.T) {
	c := &Cart{
		ID:       "cart1",
		Currency: "USD",
		Items: []CartItem{
			{ProductID: "p1", Title: "Red Shirt", Quantity: 2, Price: 1000},
			{ProductID: "p2", Title: "Hat", Quantity: 1, Price: 500},
		},
		TotalPrice: 2500,
	}

	ctx := CartContext(c, "en")
	assert.Equal(t, 3, ctx["item_count"], "item count is summed from quantities")

	items := ctx["items"].([]map[string]any)
	require.Len(t, items, 2)
	assert.Contains(t, items[0]["line_price"].(string), "20.00")
}

func TestLinklistsContext(t *testing.T) {
	menus := []NavigationMenu{
		{Handle: "main-menu", Title: "Main", Items: []NavItem{{Title: "Home", URL: "/"}}},
		{Handle: "footer", Title: "Footer"},
	}

	ctx := LinklistsContext(menus)
	main := ctx["main-menu"].(map[string]any)
	links := main["links"].([]map[string]any)
	require.Len(t, links, 1)
	assert.Equal(t, "/", links[0]["url"])
}
