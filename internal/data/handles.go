package data

import (
	"context"

	"github.com/fasttify/liquidforge/internal/cache"
)

// handleMap is the cached per-store handle→id index for one entity
// type. Rebuilt only when a lookup misses the cached map, never on
// every request.
type handleMap map[string]string

// productByHandle resolves a product by handle: direct id lookup
// first, then the cached handle map, rebuilding the map from a full
// active-product scan only when the cached map has no entry.
func (l *Loader) productByHandle(ctx context.Context, storeID, handle string) (*Product, error) {
	// The handle may actually be an id.
	if p, err := l.backend.GetProduct(ctx, storeID, handle); err == nil && p != nil {
		return p, nil
	}

	key := cache.HandleMapKey(storeID, "product")
	if cached, ok := l.cache.Get(key); ok {
		if hm, ok := cached.(handleMap); ok {
			if id, ok := hm[handle]; ok {
				return l.backend.GetProduct(ctx, storeID, id)
			}
		}
	}

	hm, err := l.buildProductHandleMap(ctx, storeID)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, hm, l.cache.DataTTL(""))

	id, ok := hm[handle]
	if !ok {
		return nil, nil
	}
	return l.backend.GetProduct(ctx, storeID, id)
}

func (l *Loader) buildProductHandleMap(ctx context.Context, storeID string) (handleMap, error) {
	hm := make(handleMap)
	opts := ListOptions{Limit: 250}
	for {
		page, err := l.backend.ListProducts(ctx, storeID, opts)
		if err != nil {
			return nil, err
		}
		for i := range page.Products {
			p := &page.Products[i]
			if p.Status != "active" {
				continue
			}
			h := p.Handle
			if h == "" {
				h = Handleize(p.Title)
			}
			hm[h] = p.ID
		}
		if page.NextToken == "" {
			return hm, nil
		}
		opts.NextToken = page.NextToken
	}
}

// collectionByHandle resolves a collection by handle the same way:
// direct id first, then a scan of the store's collections, which are
// few enough to walk without an index cache beyond the data TTL.
func (l *Loader) collectionByHandle(ctx context.Context, storeID, handle string) (*Collection, error) {
	if c, err := l.backend.GetCollection(ctx, storeID, handle); err == nil && c != nil {
		return c, nil
	}

	key := cache.HandleMapKey(storeID, "collection")
	if cached, ok := l.cache.Get(key); ok {
		if hm, ok := cached.(handleMap); ok {
			if id, ok := hm[handle]; ok {
				return l.backend.GetCollection(ctx, storeID, id)
			}
		}
	}

	hm := make(handleMap)
	opts := ListOptions{Limit: 250}
	for {
		page, err := l.backend.ListCollections(ctx, storeID, opts)
		if err != nil {
			return nil, err
		}
		for i := range page.Collections {
			c := &page.Collections[i]
			h := c.Handle
			if h == "" {
				h = Handleize(c.Title)
			}
			hm[h] = c.ID
		}
		if page.NextToken == "" {
			break
		}
		opts.NextToken = page.NextToken
	}
	l.cache.Set(key, hm, l.cache.DataTTL(""))

	id, ok := hm[handle]
	if !ok {
		return nil, nil
	}
	return l.backend.GetCollection(ctx, storeID, id)
}
