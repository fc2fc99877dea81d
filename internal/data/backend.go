package data

import "context"

// ListOptions are the pagination parameters of list queries.
type ListOptions struct {
	Limit     int
	NextToken string
}

// ProductPage is one page of products plus its continuation token.
type ProductPage struct {
	Products  []Product
	NextToken string
}

// CollectionPage is one page of collections.
type CollectionPage struct {
	Collections []Collection
	NextToken   string
}

// PageList is one page of content pages.
type PageList struct {
	Pages     []Page
	NextToken string
}

// Backend is the data-store contract the loader consumes. Every query
// is tenant-scoped by storeID. List queries return `{items, nextToken}`
// shapes; an empty NextToken means the listing is exhausted. Get
// queries return (nil, nil) on a clean miss so callers can distinguish
// "absent" from "backend failure".
type Backend interface {
	ListProducts(ctx context.Context, storeID string, opts ListOptions) (*ProductPage, error)
	GetProduct(ctx context.Context, storeID, productID string) (*Product, error)
	ListProductsByCollection(ctx context.Context, storeID, collectionID string, opts ListOptions) (*ProductPage, error)

	ListCollections(ctx context.Context, storeID string, opts ListOptions) (*CollectionPage, error)
	GetCollection(ctx context.Context, storeID, collectionID string) (*Collection, error)

	ListPages(ctx context.Context, storeID string, opts ListOptions) (*PageList, error)
	GetPageByHandle(ctx context.Context, storeID, handle string) (*Page, error)
	ListPolicies(ctx context.Context, storeID string) ([]Policy, error)

	GetNavigationMenus(ctx context.Context, storeID string) ([]NavigationMenu, error)
	GetCart(ctx context.Context, storeID, cartID string) (*Cart, error)
}
