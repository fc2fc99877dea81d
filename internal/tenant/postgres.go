package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDirectory resolves tenants from the stores table.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory wraps an existing pool.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

const storeColumns = `id, name, slug, custom_domain, status, currency, locale,
description, email, phone, address, theme, logo, favicon, banner`

func scanStore(row pgx.Row) (*Store, error) {
	var s Store
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.CustomDomain, &s.Status, &s.Currency, &s.Locale,
		&s.Description, &s.Email, &s.Phone, &s.Address, &s.Theme, &s.Logo, &s.Favicon, &s.Banner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStoreByDomain looks a store up by verified custom domain.
func (d *PGDirectory) GetStoreByDomain(ctx context.Context, domain string) (*Store, error) {
	row := d.pool.QueryRow(ctx, `
SELECT `+storeColumns+`
FROM stores
WHERE custom_domain = $1`, domain)

	s, err := scanStore(row)
	if err != nil {
		return nil, fmt.Errorf("looking up store by domain %s: %w", domain, err)
	}
	return s, nil
}

// GetStoreBySlug looks a store up by platform sub-domain slug.
func (d *PGDirectory) GetStoreBySlug(ctx context.Context, slug string) (*Store, error) {
	row := d.pool.QueryRow(ctx, `
SELECT `+storeColumns+`
FROM stores
WHERE slug = $1`, slug)

	s, err := scanStore(row)
	if err != nil {
		return nil, fmt.Errorf("looking up store by slug %s: %w", slug, err)
	}
	return s, nil
}
