package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGBackend is a postgres-backed Backend for deployments that keep
// storefront data in their own database rather than a hosted platform
// API. Queries are plain SQL over a pgx pool; continuation tokens are
// numeric offsets.
type PGBackend struct {
	pool *pgxpool.Pool
}

// NewPGBackend wraps an existing pool.
func NewPGBackend(pool *pgxpool.Pool) *PGBackend {
	return &PGBackend{pool: pool}
}

// Connect opens a pool for the given database URL.
func Connect(ctx context.Context, databaseURL string) (*PGBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PGBackend{pool: pool}, nil
}

// Close releases the underlying pool.
func (b *PGBackend) Close() {
	b.pool.Close()
}

// Pool exposes the pool so other stores can share the connection.
func (b *PGBackend) Pool() *pgxpool.Pool {
	return b.pool
}

func listClause(opts ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if opts.NextToken != "" {
		fmt.Sscanf(opts.NextToken, "%d", &offset)
	}
	return limit, offset
}

func nextToken(offset, limit, got int) string {
	if got < limit {
		return ""
	}
	return fmt.Sprintf("%d", offset+got)
}

const productColumns = `id, store_id, title, handle, description, vendor,
price, compare_at_price, currency, images, tags, status, quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.StoreID, &p.Title, &p.Handle, &p.Description, &p.Vendor,
		&p.Price, &p.CompareAtPrice, &p.Currency, &p.Images, &p.Tags, &p.Status, &p.Quantity,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (b *PGBackend) ListProducts(ctx context.Context, storeID string, opts ListOptions) (*ProductPage, error) {
	limit, offset := listClause(opts)
	rows, err := b.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products
WHERE store_id = $1 AND status = 'active'
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return &ProductPage{Products: products, NextToken: nextToken(offset, limit, len(products))}, nil
}

func (b *PGBackend) GetProduct(ctx context.Context, storeID, productID string) (*Product, error) {
	row := b.pool.QueryRow(ctx, `
SELECT `+productColumns+`
FROM products
WHERE store_id = $1 AND id = $2`, storeID, productID)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product %s: %w", productID, err)
	}
	return p, nil
}

func (b *PGBackend) ListProductsByCollection(ctx context.Context, storeID, collectionID string, opts ListOptions) (*ProductPage, error) {
	limit, offset := listClause(opts)
	rows, err := b.pool.Query(ctx, `
SELECT `+productColumns+`
FROM products p
JOIN collection_products cp ON cp.product_id = p.id
WHERE p.store_id = $1 AND cp.collection_id = $2 AND p.status = 'active'
ORDER BY cp.position, p.created_at DESC
LIMIT $3 OFFSET $4`, storeID, collectionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing collection products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing collection products: %w", err)
	}
	return &ProductPage{Products: products, NextToken: nextToken(offset, limit, len(products))}, nil
}

func (b *PGBackend) ListCollections(ctx context.Context, storeID string, opts ListOptions) (*CollectionPage, error) {
	limit, offset := listClause(opts)
	rows, err := b.pool.Query(ctx, `
SELECT id, store_id, title, handle, description, image, sort_order, updated_at
FROM collections
WHERE store_id = $1
ORDER BY title
LIMIT $2 OFFSET $3`, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Title, &c.Handle, &c.Description, &c.Image, &c.SortOrder, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return &CollectionPage{Collections: collections, NextToken: nextToken(offset, limit, len(collections))}, nil
}

func (b *PGBackend) GetCollection(ctx context.Context, storeID, collectionID string) (*Collection, error) {
	var c Collection
	err := b.pool.QueryRow(ctx, `
SELECT id, store_id, title, handle, description, image, sort_order, updated_at
FROM collections
WHERE store_id = $1 AND id = $2`, storeID, collectionID).
		Scan(&c.ID, &c.StoreID, &c.Title, &c.Handle, &c.Description, &c.Image, &c.SortOrder, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", collectionID, err)
	}
	return &c, nil
}

func (b *PGBackend) ListPages(ctx context.Context, storeID string, opts ListOptions) (*PageList, error) {
	limit, offset := listClause(opts)
	rows, err := b.pool.Query(ctx, `
SELECT id, store_id, title, handle, body, visible, page_type, updated_at
FROM pages
WHERE store_id = $1 AND visible
ORDER BY title
LIMIT $2 OFFSET $3`, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Title, &p.Handle, &p.Body, &p.Visible, &p.PageType, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	return &PageList{Pages: pages, NextToken: nextToken(offset, limit, len(pages))}, nil
}

func (b *PGBackend) GetPageByHandle(ctx context.Context, storeID, handle string) (*Page, error) {
	var p Page
	err := b.pool.QueryRow(ctx, `
SELECT id, store_id, title, handle, body, visible, page_type, updated_at
FROM pages
WHERE store_id = $1 AND handle = $2 AND visible`, storeID, handle).
		Scan(&p.ID, &p.StoreID, &p.Title, &p.Handle, &p.Body, &p.Visible, &p.PageType, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting page %s: %w", handle, err)
	}
	return &p, nil
}

func (b *PGBackend) ListPolicies(ctx context.Context, storeID string) ([]Policy, error) {
	rows, err := b.pool.Query(ctx, `
SELECT handle, title, body
FROM store_policies
WHERE store_id = $1
ORDER BY handle`, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.Handle, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("scanning policy: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (b *PGBackend) GetNavigationMenus(ctx context.Context, storeID string) ([]NavigationMenu, error) {
	rows, err := b.pool.Query(ctx, `
SELECT handle, title, items
FROM navigation_menus
WHERE store_id = $1
ORDER BY handle`, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing navigation menus: %w", err)
	}
	defer rows.Close()

	var menus []NavigationMenu
	for rows.Next() {
		var m NavigationMenu
		if err := rows.Scan(&m.Handle, &m.Title, &m.Items); err != nil {
			return nil, fmt.Errorf("scanning navigation menu: %w", err)
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

func (b *PGBackend) GetCart(ctx context.Context, storeID, cartID string) (*Cart, error) {
	var c Cart
	err := b.pool.QueryRow(ctx, `
SELECT id, store_id, items, item_count, total_price, currency
FROM carts
WHERE store_id = $1 AND id = $2`, storeID, cartID).
		Scan(&c.ID, &c.StoreID, &c.Items, &c.ItemCount, &c.TotalPrice, &c.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cart %s: %w", cartID, err)
	}
	return &c, nil
}
