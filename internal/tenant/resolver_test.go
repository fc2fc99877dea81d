package tenant

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttify/liquidforge/internal/cache"
	forgerrors "github.com/fasttify/liquidforge/internal/errors"
)

type fakeDirectory struct {
	byDomain map[string]*Store
	bySlug   map[string]*Store
	err      error
	calls    atomic.Int64
}

func (f *fakeDirectory) GetStoreByDomain(_ context.Context, domain string) (*Store, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.byDomain[domain], nil
}

func (f *fakeDirectory) GetStoreBySlug(_ context.Context, slug string) (*Store, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.bySlug[slug], nil
}

func activeStore(id string) *Store {
	return &Store{ID: id, Name: "Shop " + id, Slug: id, Status: "active", Currency: "USD"}
}

func newResolver(dir *fakeDirectory) *Resolver {
	return NewResolver(dir, cache.NewManager(), "fasttify.com", nil)
}

func TestResolveStore_CustomDomain(t *testing.T) {
	dir := &fakeDirectory{byDomain: map[string]*Store{"shop.example.com": activeStore("s1")}}
	r := newResolver(dir)

	store, err := r.ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "s1", store.ID)
}

func TestResolveStore_PlatformSubdomain(t *testing.T) {
	dir := &fakeDirectory{bySlug: map[string]*Store{"myshop": activeStore("s2")}}
	r := newResolver(dir)

	store, err := r.ResolveStore(context.Background(), "myshop.fasttify.com")
	require.NoError(t, err)
	assert.Equal(t, "s2", store.ID)
}

func TestResolveStore_PositiveCache(t *testing.T) {
	dir := &fakeDirectory{byDomain: map[string]*Store{"shop.example.com": activeStore("s1")}}
	r := newResolver(dir)

	_, err := r.ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)
	_, err = r.ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)

	assert.Equal(t, int64(1), dir.calls.Load(), "second resolution should hit the cache")
}

func TestResolveStore_NotFound(t *testing.T) {
	dir := &fakeDirectory{}
	r := newResolver(dir)

	_, err := r.ResolveStore(context.Background(), "unknown.example.com")
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrStoreNotFound))

	re, ok := forgerrors.AsRenderError(err)
	require.True(t, ok)
	assert.Equal(t, 404, re.StatusCode)
}

func TestResolveStore_NegativeCacheNotFound(t *testing.T) {
	dir := &fakeDirectory{}
	r := newResolver(dir)

	_, err := r.ResolveStore(context.Background(), "unknown.example.com")
	require.Error(t, err)
	callsAfterFirst := dir.calls.Load()

	_, err = r.ResolveStore(context.Background(), "unknown.example.com")
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrStoreNotFound))
	assert.Equal(t, callsAfterFirst, dir.calls.Load(), "not-found is negative-cached")
}

func TestResolveStore_NegativeCacheError(t *testing.T) {
	dir := &fakeDirectory{err: fmt.Errorf("backend down")}
	r := newResolver(dir)

	_, err := r.ResolveStore(context.Background(), "shop.example.com")
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrData))
	callsAfterFirst := dir.calls.Load()

	_, err = r.ResolveStore(context.Background(), "shop.example.com")
	require.Error(t, err)
	assert.Equal(t, callsAfterFirst, dir.calls.Load(), "backend errors are negative-cached")
}

func TestResolveStore_Inactive(t *testing.T) {
	suspended := &Store{ID: "s3", Status: "suspended"}
	dir := &fakeDirectory{byDomain: map[string]*Store{"shop.example.com": suspended}}
	r := newResolver(dir)

	_, err := r.ResolveStore(context.Background(), "shop.example.com")
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrStoreNotActive))

	re, _ := forgerrors.AsRenderError(err)
	assert.Equal(t, 402, re.StatusCode)
}

func TestResolveStore_DomainNormalization(t *testing.T) {
	dir := &fakeDirectory{byDomain: map[string]*Store{"shop.example.com": activeStore("s1")}}
	r := newResolver(dir)

	store, err := r.ResolveStore(context.Background(), "Shop.Example.COM:8080")
	require.NoError(t, err)
	assert.Equal(t, "s1", store.ID)
}

func TestResolveStore_Invalidate(t *testing.T) {
	dir := &fakeDirectory{byDomain: map[string]*Store{"shop.example.com": activeStore("s1")}}
	r := newResolver(dir)

	_, err := r.ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)

	r.Invalidate("shop.example.com")

	_, err = r.ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), dir.calls.Load())
}

func TestPlatformSlug(t *testing.T) {
	r := newResolver(&fakeDirectory{})

	slug, ok := r.platformSlug("myshop.fasttify.com")
	assert.True(t, ok)
	assert.Equal(t, "myshop", slug)

	_, ok = r.platformSlug("a.b.fasttify.com")
	assert.False(t, ok, "nested sub-domains are not tenant slugs")

	_, ok = r.platformSlug("fasttify.com")
	assert.False(t, ok)

	_, ok = r.platformSlug("shop.example.com")
	assert.False(t, ok)
}
