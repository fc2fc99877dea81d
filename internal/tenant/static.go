package tenant

import "context"

// StaticDirectory serves a fixed set of stores. Used in development
// against a local theme and in tests.
type StaticDirectory struct {
	stores []*Store
}

// NewStaticDirectory creates a directory over the given stores.
func NewStaticDirectory(stores ...*Store) *StaticDirectory {
	return &StaticDirectory{stores: stores}
}

// GetStoreByDomain matches on custom domain.
func (d *StaticDirectory) GetStoreByDomain(_ context.Context, domain string) (*Store, error) {
	for _, s := range d.stores {
		if s.CustomDomain == domain {
			return s, nil
		}
	}
	return nil, nil
}

// GetStoreBySlug matches on platform slug.
func (d *StaticDirectory) GetStoreBySlug(_ context.Context, slug string) (*Store, error) {
	for _, s := range d.stores {
		if s.Slug == slug {
			return s, nil
		}
	}
	return nil, nil
}
