package data

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttify/liquidforge/internal/analyzer"
	"github.com/fasttify/liquidforge/internal/cache"
	forgerrors "github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/tenant"
)

func testStore() *tenant.Store {
	return &tenant.Store{
		ID:       "s1",
		Name:     "Test Shop",
		Slug:     "test",
		Status:   "active",
		Currency: "USD",
		Locale:   "en",
	}
}

func seededBackend() *MemBackend {
	b := NewMemBackend()
	b.SeedProduct("s1", Product{ID: "p1", Title: "Red Shirt", Handle: "red-shirt", Price: 1999, Currency: "USD", Status: "active", Quantity: 5})
	b.SeedProduct("s1", Product{ID: "p2", Title: "Blue Hat", Handle: "blue-hat", Price: 999, Currency: "USD", Status: "active", Quantity: 2})
	b.SeedProduct("s1", Product{ID: "p3", Title: "Old Thing", Handle: "old-thing", Price: 100, Currency: "USD", Status: "archived"})
	b.SeedCollection("s1", Collection{ID: "c1", Title: "Summer", Handle: "summer"}, "p1", "p2")
	b.SeedPage("s1", Page{ID: "pg1", Title: "About Us", Handle: "about-us", Body: "<p>hi</p>", Visible: true})
	b.SeedMenu("s1", NavigationMenu{Handle: "main-menu", Title: "Main", Items: []NavItem{{Title: "Home", URL: "/"}}})
	b.SeedPolicies("s1", Policy{Handle: "privacy-policy", Title: "Privacy", Body: "..."})
	b.SeedCart(&Cart{ID: "cart1", StoreID: "s1", Items: []CartItem{{ProductID: "p1", Title: "Red Shirt", Quantity: 1, Price: 1999}}, TotalPrice: 1999, Currency: "USD"})
	return b
}

func analysisOf(kinds ...analyzer.Kind) *analyzer.Analysis {
	a := &analyzer.Analysis{RequiredData: make(map[analyzer.Kind]analyzer.Options)}
	for _, k := range kinds {
		a.RequiredData[k] = analyzer.Options{}
	}
	return a
}

func TestLoad_ShopCartLinklists(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindShop, analyzer.KindCart, analyzer.KindLinklists), Request{})
	require.NoError(t, err)

	shop := result["shop"].(map[string]any)
	assert.Equal(t, "Test Shop", shop["name"])

	cart := result["cart"].(map[string]any)
	assert.Equal(t, 0, cart["item_count"], "no session cart yields an empty cart")

	linklists := result["linklists"].(map[string]any)
	assert.Contains(t, linklists, "main-menu")
}

func TestLoad_SessionCart(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindCart), Request{CartID: "cart1"})
	require.NoError(t, err)

	cart := result["cart"].(map[string]any)
	assert.Equal(t, 1, cart["item_count"])
}

func TestLoad_Products(t *testing.T) {
	b := seededBackend()
	l := NewLoader(b, cache.NewManager(), nil)

	a := analysisOf()
	a.RequiredData[analyzer.KindProducts] = analyzer.Options{"limit": 1}

	result, err := l.Load(context.Background(), testStore(), a, Request{})
	require.NoError(t, err)

	products := result["products"].([]map[string]any)
	require.Len(t, products, 1)
	assert.Equal(t, "red-shirt", products[0]["handle"])
	assert.Equal(t, "1", result["next_token"], "continuation token for the next page")
}

func TestLoad_ProductsCached(t *testing.T) {
	b := seededBackend()
	l := NewLoader(b, cache.NewManager(), nil)

	a := analysisOf()
	a.RequiredData[analyzer.KindProducts] = analyzer.Options{"limit": 10}

	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background(), testStore(), a, Request{})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), b.Calls.ListProducts.Load(), "repeat loads served from cache")
}

func TestLoad_PrimaryProduct(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindProduct), Request{PageType: "product", Handle: "red-shirt"})
	require.NoError(t, err)

	product := result["product"].(map[string]any)
	assert.Equal(t, "p1", product["id"])
}

func TestLoad_PrimaryProductNotFound(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	_, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindProduct), Request{PageType: "product", Handle: "ghost"})
	require.Error(t, err)
	assert.True(t, forgerrors.IsNotFound(err), "missing primary subject is a hard 404")
}

func TestLoad_ArchivedProductNotInHandleMap(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	_, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindProduct), Request{PageType: "product", Handle: "old-thing"})
	require.Error(t, err)
	assert.True(t, forgerrors.IsNotFound(err), "archived products resolve like missing ones")
}

func TestLoad_PrimaryCollection(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindCollection), Request{PageType: "collection", Handle: "summer"})
	require.NoError(t, err)

	collection := result["collection"].(map[string]any)
	assert.Equal(t, "c1", collection["id"])
	products := collection["products"].([]map[string]any)
	assert.Len(t, products, 2)
}

func TestLoad_CollectionProductsByHandle(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	a := analysisOf()
	a.RequiredData[analyzer.KindCollectionProducts] = analyzer.Options{"collectionHandle": "summer", "limit": 8}

	result, err := l.Load(context.Background(), testStore(), a, Request{})
	require.NoError(t, err)

	byHandle := result["collections_by_handle"].(map[string]any)
	summer := byHandle["summer"].(map[string]any)
	assert.Len(t, summer["products"].([]map[string]any), 2)
}

func TestLoad_PagePrimary(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindPage), Request{PageType: "page", Handle: "about-us"})
	require.NoError(t, err)

	page := result["page"].(map[string]any)
	assert.Equal(t, "About Us", page["title"])
}

func TestLoad_Policies(t *testing.T) {
	l := NewLoader(seededBackend(), cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(), analysisOf(analyzer.KindPolicies), Request{})
	require.NoError(t, err)

	policies := result["policies"].([]map[string]any)
	require.Len(t, policies, 1)
	assert.Equal(t, "/policies/privacy-policy", policies[0]["url"])
}

func TestLoad_SecondaryFailureDegrades(t *testing.T) {
	b := &failingMenus{Backend: seededBackend()}
	l := NewLoader(b, cache.NewManager(), nil)

	result, err := l.Load(context.Background(), testStore(),
		analysisOf(analyzer.KindLinklists, analyzer.KindShop), Request{})
	require.NoError(t, err, "navigation failure must not abort the load")

	linklists := result["linklists"].(map[string]any)
	assert.Empty(t, linklists)
	assert.NotNil(t, result["shop"])
}

type failingMenus struct {
	Backend
}

func (f *failingMenus) GetNavigationMenus(context.Context, string) ([]NavigationMenu, error) {
	return nil, fmt.Errorf("dynamo on fire")
}

func TestHandleMap_RebuiltOnlyOnMiss(t *testing.T) {
	b := seededBackend()
	l := NewLoader(b, cache.NewManager(), nil)
	ctx := context.Background()

	// First lookup: direct id miss, map build scans the store.
	p, err := l.productByHandle(ctx, "s1", "blue-hat")
	require.NoError(t, err)
	require.NotNil(t, p)
	scansAfterFirst := b.Calls.ListProducts.Load()

	// Second lookup hits the cached map, no rescan.
	p, err = l.productByHandle(ctx, "s1", "red-shirt")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, scansAfterFirst, b.Calls.ListProducts.Load())
}
