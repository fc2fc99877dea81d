package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/fasttify/liquidforge/internal/cache"
	"github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/logging"
)

// Negative-cache lifetimes. A confirmed "no such store" can be held
// longer than a transient backend error.
const (
	notFoundTTL = 5 * time.Minute
	errorTTL    = time.Minute
)

// Directory is the tenant lookup backend.
type Directory interface {
	// GetStoreByDomain looks up a store by its verified custom domain.
	// Returns (nil, nil) when no store claims the domain.
	GetStoreByDomain(ctx context.Context, domain string) (*Store, error)
	// GetStoreBySlug looks up a store by its platform sub-domain slug.
	// Returns (nil, nil) when the slug is unused.
	GetStoreBySlug(ctx context.Context, slug string) (*Store, error)
}

// negativeEntry records a failed resolution so repeats are cheap.
type negativeEntry struct {
	errType errors.ErrorType
}

// Resolver maps request domains to stores with positive and negative
// caching.
type Resolver struct {
	directory      Directory
	cache          *cache.Manager
	log            logging.Logger
	platformSuffix string
}

// NewResolver creates a resolver. platformSuffix is the shared parent
// domain of tenant sub-domains, e.g. "fasttify.com".
func NewResolver(directory Directory, c *cache.Manager, platformSuffix string, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{
		directory:      directory,
		cache:          c,
		log:            log.WithComponent("tenant"),
		platformSuffix: platformSuffix,
	}
}

// ResolveStore maps a domain to its active store. Custom domains are
// tried first, then the platform sub-domain slug. Failures come back
// as typed STORE_NOT_FOUND / STORE_NOT_ACTIVE errors and are
// negative-cached.
func (r *Resolver) ResolveStore(ctx context.Context, domain string) (*Store, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, errors.NewStoreNotFound(domain)
	}

	key := cache.DomainKey(domain)
	if cached, ok := r.cache.Get(key); ok {
		switch v := cached.(type) {
		case *Store:
			return r.checkActive(v, domain)
		case negativeEntry:
			return nil, r.negativeError(v, domain)
		}
	}

	store, err := r.lookup(ctx, domain)
	if err != nil {
		r.log.Warn(ctx, err, "store lookup failed", "domain", domain)
		r.cache.Set(key, negativeEntry{errType: errors.ErrData}, errorTTL)
		return nil, errors.NewDataError("store lookup failed for domain: "+domain, err)
	}
	if store == nil {
		r.cache.Set(key, negativeEntry{errType: errors.ErrStoreNotFound}, notFoundTTL)
		return nil, errors.NewStoreNotFound(domain)
	}

	r.cache.Set(key, store, r.cache.DomainTTL())
	return r.checkActive(store, domain)
}

func (r *Resolver) lookup(ctx context.Context, domain string) (*Store, error) {
	store, err := r.directory.GetStoreByDomain(ctx, domain)
	if err != nil || store != nil {
		return store, err
	}
	if slug, ok := r.platformSlug(domain); ok {
		return r.directory.GetStoreBySlug(ctx, slug)
	}
	return nil, nil
}

// platformSlug extracts the tenant slug from "<slug>.<platformSuffix>".
func (r *Resolver) platformSlug(domain string) (string, bool) {
	if r.platformSuffix == "" {
		return "", false
	}
	// Accept the suffix with or without its leading dot.
	suffix := "." + strings.TrimPrefix(r.platformSuffix, ".")
	if !strings.HasSuffix(domain, suffix) {
		return "", false
	}
	slug := strings.TrimSuffix(domain, suffix)
	if slug == "" || strings.Contains(slug, ".") {
		return "", false
	}
	return slug, true
}

func (r *Resolver) checkActive(store *Store, domain string) (*Store, error) {
	if !store.Active() {
		return nil, errors.NewStoreNotActive(domain)
	}
	return store, nil
}

func (r *Resolver) negativeError(n negativeEntry, domain string) error {
	if n.errType == errors.ErrData {
		return errors.NewDataError("store lookup failed for domain: "+domain, nil)
	}
	return errors.NewStoreNotFound(domain)
}

// Invalidate drops the cached resolution for a domain.
func (r *Resolver) Invalidate(domain string) {
	r.cache.Delete(cache.DomainKey(normalizeDomain(domain)))
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host, _, found := strings.Cut(domain, ":"); found {
		domain = host
	}
	return strings.TrimSuffix(domain, ".")
}
