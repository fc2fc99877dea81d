package data

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fasttify/liquidforge/internal/analyzer"
	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/tenant"
)

// Request carries the per-request parameters of a data load.
type Request struct {
	// PageType decides which entity is the page's primary subject.
	PageType string
	// Handle identifies the primary subject (product/collection/page).
	Handle string
	// CartID is the shopper's session cart, when present.
	CartID string
	// NextToken continues a paginated listing.
	NextToken string
	// SearchQuery is the q parameter on search pages.
	SearchQuery string
}

// Loader resolves an analysis into loaded render-context data.
type Loader struct {
	backend Backend
	cache   *cache.Manager
	log     logging.Logger
}

// NewLoader creates a data loader.
func NewLoader(backend Backend, c *cache.Manager, log logging.Logger) *Loader {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Loader{backend: backend, cache: c, log: log.WithComponent("data")}
}

// Load fetches every requirement in the analysis concurrently and
// returns the resulting context fragment. Failures on the page's
// primary subject abort the load with a typed error; everything else
// degrades to an empty value with a warning.
func (l *Loader) Load(ctx context.Context, store *tenant.Store, a *analyzer.Analysis, req Request) (map[string]any, error) {
	result := make(map[string]any)
	var mu sync.Mutex
	set := func(key string, value any) {
		mu.Lock()
		result[key] = value
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	for kind, opts := range a.RequiredData {
		kind, opts := kind, opts
		switch kind {
		case analyzer.KindShop:
			set("shop", ShopContext(store))

		case analyzer.KindProduct:
			g.Go(func() error { return l.loadPrimaryProduct(gctx, store, req, set) })

		case analyzer.KindCollection:
			g.Go(func() error { return l.loadPrimaryCollection(gctx, store, opts, req, set) })

		case analyzer.KindProducts:
			g.Go(func() error {
				l.loadProducts(gctx, store, opts, req, set)
				return nil
			})

		case analyzer.KindCollections:
			g.Go(func() error {
				l.loadCollections(gctx, store, opts, set)
				return nil
			})

		case analyzer.KindCollectionProducts, analyzer.KindProductsByCollection:
			g.Go(func() error {
				l.loadCollectionProducts(gctx, store, opts, set)
				return nil
			})

		case analyzer.KindSpecificCollection:
			g.Go(func() error {
				l.loadSpecificCollections(gctx, store, opts, set)
				return nil
			})

		case analyzer.KindSpecificProduct:
			g.Go(func() error {
				l.loadSpecificProducts(gctx, store, opts, set)
				return nil
			})

		case analyzer.KindRelatedProducts:
			g.Go(func() error {
				l.loadRelatedProducts(gctx, store, opts, set)
				return nil
			})

		case analyzer.KindPages:
			g.Go(func() error {
				l.loadPages(gctx, store, opts, set)
				return nil
			})

		case analyzer.KindPage, analyzer.KindSpecificPage:
			g.Go(func() error { return l.loadPage(gctx, store, opts, req, set) })

		case analyzer.KindPolicies:
			g.Go(func() error {
				l.loadPolicies(gctx, store, set)
				return nil
			})

		case analyzer.KindCart:
			g.Go(func() error {
				l.loadCart(gctx, store, req, set)
				return nil
			})

		case analyzer.KindLinklists:
			g.Go(func() error {
				l.loadLinklists(gctx, store, set)
				return nil
			})

		case analyzer.KindCheckout:
			set("checkout", map[string]any{"url": "/checkouts"})

		case analyzer.KindPagination:
			set("current_token", req.NextToken)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// ShopContext builds the shop object from the resolved store.
func ShopContext(store *tenant.Store) map[string]any {
	return map[string]any{
		"name":        store.Name,
		"description": store.Description,
		"currency":    store.Currency,
		"locale":      store.Locale,
		"domain":      store.CustomDomain,
		"email":       store.Email,
		"phone":       store.Phone,
		"address":     store.Address,
		"logo":        store.Logo,
		"favicon":     store.Favicon,
		"banner":      store.Banner,
	}
}

func (l *Loader) loadPrimaryProduct(ctx context.Context, store *tenant.Store, req Request, set func(string, any)) error {
	if req.PageType != "product" || req.Handle == "" {
		// A stray {{ product. }} reference outside a product page has
		// no subject; leave the slot empty.
		return nil
	}
	p, err := l.productByHandle(ctx, store.ID, req.Handle)
	if err != nil {
		return errors.NewDataError("loading product: "+req.Handle, err)
	}
	if p == nil {
		return errors.NewDataNotFound("product not found: " + req.Handle)
	}
	set("product", ProductContext(p, store.Locale))
	return nil
}

func (l *Loader) loadPrimaryCollection(ctx context.Context, store *tenant.Store, opts analyzer.Options, req Request, set func(string, any)) error {
	if req.PageType != "collection" || req.Handle == "" {
		return nil
	}
	c, err := l.collectionByHandle(ctx, store.ID, req.Handle)
	if err != nil {
		return errors.NewDataError("loading collection: "+req.Handle, err)
	}
	if c == nil {
		return errors.NewDataNotFound("collection not found: " + req.Handle)
	}

	cctx := CollectionContext(c)
	limit := opts.Limit(defaultCollectionLimit)
	page, err := l.backend.ListProductsByCollection(ctx, store.ID, c.ID, ListOptions{Limit: limit, NextToken: req.NextToken})
	if err != nil {
		l.log.Warn(ctx, err, "loading collection products", "collection", c.ID, "store_id", store.ID)
		cctx["products"] = []map[string]any{}
	} else {
		cctx["products"] = ProductContexts(page.Products, store.Locale)
		set("next_token", page.NextToken)
	}
	set("collection", cctx)
	return nil
}

func (l *Loader) loadProducts(ctx context.Context, store *tenant.Store, opts analyzer.Options, req Request, set func(string, any)) {
	limit := opts.Limit(defaultListLimit)
	key := cache.DataKey(store.ID, "products", fmt.Sprintf("limit=%d&token=%s", limit, req.NextToken))

	if cached, ok := l.cache.Get(key); ok {
		if page, ok := cached.(*ProductPage); ok {
			set("products", ProductContexts(page.Products, store.Locale))
			set("next_token", page.NextToken)
			return
		}
	}

	page, err := l.backend.ListProducts(ctx, store.ID, ListOptions{Limit: limit, NextToken: req.NextToken})
	if err != nil {
		l.log.Warn(ctx, err, "loading products", "store_id", store.ID)
		set("products", []map[string]any{})
		return
	}
	l.cache.Set(key, page, l.cache.DataTTL(""))
	set("products", ProductContexts(page.Products, store.Locale))
	set("next_token", page.NextToken)
}

func (l *Loader) loadCollections(ctx context.Context, store *tenant.Store, opts analyzer.Options, set func(string, any)) {
	limit := opts.Limit(defaultListLimit)
	key := cache.DataKey(store.ID, "collections", fmt.Sprintf("limit=%d", limit))

	if cached, ok := l.cache.Get(key); ok {
		if page, ok := cached.(*CollectionPage); ok {
			set("collections", CollectionContexts(page.Collections))
			return
		}
	}

	page, err := l.backend.ListCollections(ctx, store.ID, ListOptions{Limit: limit})
	if err != nil {
		l.log.Warn(ctx, err, "loading collections", "store_id", store.ID)
		set("collections", []map[string]any{})
		return
	}
	l.cache.Set(key, page, l.cache.DataTTL(""))
	set("collections", CollectionContexts(page.Collections))
}

// loadCollectionProducts serves collections.<handle>.products access:
// each referenced collection is resolved and its products attached,
// exposed under collections_by_handle so listing and keyed access can
// coexist.
func (l *Loader) loadCollectionProducts(ctx context.Context, store *tenant.Store, opts analyzer.Options, set func(string, any)) {
	handles := opts.Handles()
	if h, ok := opts["collectionHandle"].(string); ok && h != "" {
		handles = append([]string{h}, handles...)
	}
	limit := opts.Limit(defaultCollectionProductsLimit)

	byHandle := make(map[string]any, len(handles))
	for _, handle := range handles {
		c, err := l.collectionByHandle(ctx, store.ID, handle)
		if err != nil || c == nil {
			l.log.Warn(ctx, err, "resolving collection handle", "handle", handle, "store_id", store.ID)
			continue
		}
		cctx := CollectionContext(c)
		page, err := l.backend.ListProductsByCollection(ctx, store.ID, c.ID, ListOptions{Limit: limit})
		if err != nil {
			l.log.Warn(ctx, err, "loading products by collection", "handle", handle, "store_id", store.ID)
			cctx["products"] = []map[string]any{}
		} else {
			cctx["products"] = ProductContexts(page.Products, store.Locale)
		}
		byHandle[handle] = cctx
	}
	set("collections_by_handle", byHandle)
}

func (l *Loader) loadSpecificCollections(ctx context.Context, store *tenant.Store, opts analyzer.Options, set func(string, any)) {
	byHandle := make(map[string]any)
	for _, handle := range opts.Handles() {
		c, err := l.collectionByHandle(ctx, store.ID, handle)
		if err != nil || c == nil {
			l.log.Warn(ctx, err, "resolving collection handle", "handle", handle, "store_id", store.ID)
			continue
		}
		byHandle[handle] = CollectionContext(c)
	}
	set("specific_collections", byHandle)
}

func (l *Loader) loadSpecificProducts(ctx context.Context, store *tenant.Store, opts analyzer.Options, set func(string, any)) {
	byHandle := make(map[string]any)
	for _, handle := range opts.Handles() {
		p, err := l.productByHandle(ctx, store.ID, handle)
		if err != nil || p == nil {
			l.log.Warn(ctx, err, "resolving product handle", "handle", handle, "store_id", store.ID)
			continue
		}
		byHandle[handle] = ProductContext(p, store.Locale)
	}
	set("products_by_handle", byHandle)
}

func (l *Loader) loadRelatedProducts(ctx context.Context, store *tenant.Store, opts analyzer.Options, set func(string, any)) {
	page, err := l.backend.ListProducts(ctx, store.ID, ListOptions{Limit: opts.Limit(defaultRelatedLimit)})
	if err != nil {
		l.log.Warn(ctx, err, "loading related products", "store_id", store.ID)
		set("related_products", []map[string]any{})
		return
	}
	set("related_products", ProductContexts(page.Products, store.Locale))
}

func (l *Loader) loadPages(ctx context.Context, store *tenant.Store, opts analyzer.Options, set func(string, any)) {
	page, err := l.backend.ListPages(ctx, store.ID, ListOptions{Limit: opts.Limit(defaultListLimit)})
	if err != nil {
		l.log.Warn(ctx, err, "loading pages", "store_id", store.ID)
		set("pages", []map[string]any{})
		return
	}
	out := make([]map[string]any, 0, len(page.Pages))
	for i := range page.Pages {
		if page.Pages[i].Visible {
			out = append(out, PageContext(&page.Pages[i]))
		}
	}
	set("pages", out)
}

func (l *Loader) loadPage(ctx context.Context, store *tenant.Store, opts analyzer.Options, req Request, set func(string, any)) error {
	// A page page's primary subject.
	if req.PageType == "page" && req.Handle != "" {
		p, err := l.backend.GetPageByHandle(ctx, store.ID, req.Handle)
		if err != nil {
			return errors.NewDataError("loading page: "+req.Handle, err)
		}
		if p == nil {
			return errors.NewDataNotFound("page not found: " + req.Handle)
		}
		set("page", PageContext(p))
	}

	// Explicit pages['handle'] references are secondary.
	byHandle := make(map[string]any)
	for _, handle := range opts.Handles() {
		p, err := l.backend.GetPageByHandle(ctx, store.ID, handle)
		if err != nil || p == nil {
			l.log.Warn(ctx, err, "resolving page handle", "handle", handle, "store_id", store.ID)
			continue
		}
		byHandle[handle] = PageContext(p)
	}
	if len(byHandle) > 0 {
		set("pages_by_handle", byHandle)
	}
	return nil
}

func (l *Loader) loadPolicies(ctx context.Context, store *tenant.Store, set func(string, any)) {
	policies, err := l.backend.ListPolicies(ctx, store.ID)
	if err != nil {
		l.log.Warn(ctx, err, "loading policies", "store_id", store.ID)
		set("policies", []map[string]any{})
		return
	}
	out := make([]map[string]any, 0, len(policies))
	for i := range policies {
		out = append(out, PolicyContext(&policies[i]))
	}
	set("policies", out)
}

func (l *Loader) loadCart(ctx context.Context, store *tenant.Store, req Request, set func(string, any)) {
	if req.CartID == "" {
		set("cart", CartContext(EmptyCart(store.ID, store.Currency), store.Locale))
		return
	}
	key := cache.DataKey(store.ID, "cart", req.CartID)
	if cached, ok := l.cache.Get(key); ok {
		if c, ok := cached.(*Cart); ok {
			set("cart", CartContext(c, store.Locale))
			return
		}
	}
	c, err := l.backend.GetCart(ctx, store.ID, req.CartID)
	if err != nil || c == nil {
		if err != nil {
			l.log.Warn(ctx, err, "loading cart", "cart_id", req.CartID, "store_id", store.ID)
		}
		set("cart", CartContext(EmptyCart(store.ID, store.Currency), store.Locale))
		return
	}
	l.cache.Set(key, c, l.cache.DataTTL("cart"))
	set("cart", CartContext(c, store.Locale))
}

func (l *Loader) loadLinklists(ctx context.Context, store *tenant.Store, set func(string, any)) {
	key := cache.DataKey(store.ID, "navigation", "")
	if cached, ok := l.cache.Get(key); ok {
		if menus, ok := cached.([]NavigationMenu); ok {
			set("linklists", LinklistsContext(menus))
			return
		}
	}
	menus, err := l.backend.GetNavigationMenus(ctx, store.ID)
	if err != nil {
		l.log.Warn(ctx, err, "loading navigation menus", "store_id", store.ID)
		set("linklists", map[string]any{})
		return
	}
	l.cache.Set(key, menus, l.cache.DataTTL("navigation"))
	set("linklists", LinklistsContext(menus))
}

const (
	defaultListLimit               = 20
	defaultCollectionLimit         = 24
	defaultCollectionProductsLimit = 8
	defaultRelatedLimit            = 4
)
