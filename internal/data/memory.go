package data

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// MemBackend is a seedable in-memory Backend for development and
// tests. It counts calls per query so tests can assert cache behavior.
type MemBackend struct {
	mu          sync.RWMutex
	products    map[string][]Product        // storeID → products
	collections map[string][]Collection     // storeID → collections
	members     map[string][]string         // collectionID → productIDs
	pages       map[string][]Page           // storeID → pages
	policies    map[string][]Policy         // storeID → policies
	menus       map[string][]NavigationMenu // storeID → menus
	carts       map[string]*Cart            // cartID → cart

	Calls struct {
		ListProducts    atomic.Int64
		GetProduct      atomic.Int64
		ListCollections atomic.Int64
		GetCart         atomic.Int64
		GetMenus        atomic.Int64
	}
}

// NewMemBackend creates an empty backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{
		products:    make(map[string][]Product),
		collections: make(map[string][]Collection),
		members:     make(map[string][]string),
		pages:       make(map[string][]Page),
		policies:    make(map[string][]Policy),
		menus:       make(map[string][]NavigationMenu),
		carts:       make(map[string]*Cart),
	}
}

// SeedProduct adds a product to a store.
func (m *MemBackend) SeedProduct(storeID string, p Product) {
	m.mu.Lock()
	p.StoreID = storeID
	m.products[storeID] = append(m.products[storeID], p)
	m.mu.Unlock()
}

// SeedCollection adds a collection and its member product ids.
func (m *MemBackend) SeedCollection(storeID string, c Collection, productIDs ...string) {
	m.mu.Lock()
	c.StoreID = storeID
	m.collections[storeID] = append(m.collections[storeID], c)
	m.members[c.ID] = productIDs
	m.mu.Unlock()
}

// SeedPage adds a content page.
func (m *MemBackend) SeedPage(storeID string, p Page) {
	m.mu.Lock()
	p.StoreID = storeID
	m.pages[storeID] = append(m.pages[storeID], p)
	m.mu.Unlock()
}

// SeedPolicies replaces a store's policies.
func (m *MemBackend) SeedPolicies(storeID string, policies ...Policy) {
	m.mu.Lock()
	m.policies[storeID] = policies
	m.mu.Unlock()
}

// SeedMenu adds a navigation menu.
func (m *MemBackend) SeedMenu(storeID string, menu NavigationMenu) {
	m.mu.Lock()
	m.menus[storeID] = append(m.menus[storeID], menu)
	m.mu.Unlock()
}

// SeedCart registers a cart.
func (m *MemBackend) SeedCart(c *Cart) {
	m.mu.Lock()
	m.carts[c.ID] = c
	m.mu.Unlock()
}

// paginate slices items by a numeric-offset token.
func paginate[T any](items []T, opts ListOptions) ([]T, string) {
	offset := 0
	if opts.NextToken != "" {
		if n, err := strconv.Atoi(opts.NextToken); err == nil && n > 0 {
			offset = n
		}
	}
	if offset >= len(items) {
		return nil, ""
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	var next string
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[offset:end], next
}

func (m *MemBackend) ListProducts(_ context.Context, storeID string, opts ListOptions) (*ProductPage, error) {
	m.Calls.ListProducts.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, next := paginate(m.products[storeID], opts)
	return &ProductPage{Products: items, NextToken: next}, nil
}

func (m *MemBackend) GetProduct(_ context.Context, storeID, productID string) (*Product, error) {
	m.Calls.GetProduct.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.products[storeID] {
		if m.products[storeID][i].ID == productID {
			p := m.products[storeID][i]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MemBackend) ListProductsByCollection(_ context.Context, storeID, collectionID string, opts ListOptions) (*ProductPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	memberSet := make(map[string]bool)
	for _, id := range m.members[collectionID] {
		memberSet[id] = true
	}
	var matched []Product
	for _, p := range m.products[storeID] {
		if memberSet[p.ID] {
			matched = append(matched, p)
		}
	}
	items, next := paginate(matched, opts)
	return &ProductPage{Products: items, NextToken: next}, nil
}

func (m *MemBackend) ListCollections(_ context.Context, storeID string, opts ListOptions) (*CollectionPage, error) {
	m.Calls.ListCollections.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, next := paginate(m.collections[storeID], opts)
	return &CollectionPage{Collections: items, NextToken: next}, nil
}

func (m *MemBackend) GetCollection(_ context.Context, storeID, collectionID string) (*Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.collections[storeID] {
		if m.collections[storeID][i].ID == collectionID {
			c := m.collections[storeID][i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemBackend) ListPages(_ context.Context, storeID string, opts ListOptions) (*PageList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, next := paginate(m.pages[storeID], opts)
	return &PageList{Pages: items, NextToken: next}, nil
}

func (m *MemBackend) GetPageByHandle(_ context.Context, storeID, handle string) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.pages[storeID] {
		p := m.pages[storeID][i]
		h := p.Handle
		if h == "" {
			h = Handleize(p.Title)
		}
		if h == handle {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MemBackend) ListPolicies(_ context.Context, storeID string) ([]Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	policies := append([]Policy(nil), m.policies[storeID]...)
	sort.Slice(policies, func(i, j int) bool { return policies[i].Handle < policies[j].Handle })
	return policies, nil
}

func (m *MemBackend) GetNavigationMenus(_ context.Context, storeID string) ([]NavigationMenu, error) {
	m.Calls.GetMenus.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]NavigationMenu(nil), m.menus[storeID]...), nil
}

func (m *MemBackend) GetCart(_ context.Context, _ string, cartID string) (*Cart, error) {
	m.Calls.GetCart.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.carts[cartID], nil
}
