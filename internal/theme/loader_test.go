package theme

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/osteele/liquid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasttify/liquidforge/internal/cache"
	forgerrors "github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/storage"
)

// slowStore delays every Get so concurrent callers overlap.
type slowStore struct {
	inner storage.ObjectStore
	delay time.Duration
	gets  atomic.Int64
}

func (s *slowStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	time.Sleep(s.delay)
	return s.inner.Get(ctx, key)
}

func seededStore() *storage.MemStore {
	ms := storage.NewMemStore()
	ms.PutTemplate("s1", "layout/theme.liquid", "<html>{{ content_for_layout }}</html>")
	ms.PutTemplate("s1", "sections/header.liquid", "{{ shop.name }}")
	ms.PutTemplate("s1", "snippets/price.liquid", "{{ product.price }}")
	ms.Put("templates/s1/templates/index.json", []byte(`{
		"sections": {
			"hero": {"type": "hero", "settings": {"title": "Hi"}},
			"off": {"type": "promo", "disabled": true}
		},
		"order": ["hero", "off", "ghost"]
	}`))
	return ms
}

// engineParser adapts *liquid.Engine to Parser: the engine's
// ParseTemplate returns liquid.SourceError rather than error.
type engineParser struct {
	e *liquid.Engine
}

func (p engineParser) ParseTemplate(src []byte) (*liquid.Template, error) {
	tmpl, err := p.e.ParseTemplate(src)
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

func newLoader(t *testing.T, store storage.ObjectStore, production bool) *Loader {
	t.Helper()
	return NewLoader(Options{
		Primary:    store,
		Cache:      cache.NewManager(),
		Parser:     engineParser{liquid.NewEngine()},
		Production: production,
	})
}

func TestLoadRaw(t *testing.T) {
	l := newLoader(t, seededStore(), true)

	src, err := l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
	require.NoError(t, err)
	assert.Contains(t, src, "content_for_layout")
}

func TestLoadRaw_BareSectionName(t *testing.T) {
	l := newLoader(t, seededStore(), true)

	src, err := l.LoadRaw(context.Background(), "s1", "header")
	require.NoError(t, err)
	assert.Equal(t, "{{ shop.name }}", src)
}

func TestLoadRaw_Missing(t *testing.T) {
	l := newLoader(t, seededStore(), true)

	_, err := l.LoadRaw(context.Background(), "s1", "sections/absent.liquid")
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrTemplateNotFound))

	re, _ := forgerrors.AsRenderError(err)
	assert.Equal(t, 404, re.StatusCode)
	assert.Equal(t, "sections/absent.liquid", re.Details["path"])
}

func TestLoadRaw_CachesSource(t *testing.T) {
	ms := seededStore()
	l := newLoader(t, ms, true)

	for i := 0; i < 3; i++ {
		_, err := l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), ms.GetCount())
}

func TestLoadRaw_Fallback(t *testing.T) {
	empty := storage.NewMemStore()
	l := NewLoader(Options{
		Primary:    empty,
		Fallback:   seededStore(),
		Cache:      cache.NewManager(),
		Parser:     engineParser{liquid.NewEngine()},
		Production: true,
	})

	src, err := l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
	require.NoError(t, err)
	assert.Contains(t, src, "content_for_layout")
}

func TestLoadRaw_SingleflightInProduction(t *testing.T) {
	slow := &slowStore{inner: seededStore(), delay: 50 * time.Millisecond}
	l := newLoader(t, slow, true)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), slow.gets.Load(), "concurrent loads share one fetch")
}

func TestLoadRaw_NoDeduplicationInDevelopment(t *testing.T) {
	slow := &slowStore{inner: seededStore(), delay: 50 * time.Millisecond}
	l := NewLoader(Options{
		Primary:    slow,
		Cache:      cache.NewManager(cache.WithDevelopmentMode(true)),
		Parser:     engineParser{liquid.NewEngine()},
		Production: false,
	})
	// Turn caching off entirely so both calls reach storage.
	l.cache.SetDevCacheEnabled(false)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2), slow.gets.Load(), "dev mode issues independent fetches")
}

func TestLoadCompiled(t *testing.T) {
	ms := seededStore()
	l := newLoader(t, ms, true)

	tmpl, err := l.LoadCompiled(context.Background(), "s1", "sections/header.liquid")
	require.NoError(t, err)

	out, err := tmpl.Render(liquid.Bindings{"shop": map[string]any{"name": "My Shop"}})
	require.NoError(t, err)
	assert.Equal(t, "My Shop", string(out))

	// Second load comes from the compiled LRU without touching storage.
	before := ms.GetCount()
	_, err = l.LoadCompiled(context.Background(), "s1", "sections/header.liquid")
	require.NoError(t, err)
	assert.Equal(t, before, ms.GetCount())
}

func TestLoadCompiled_ParseError(t *testing.T) {
	ms := storage.NewMemStore()
	ms.PutTemplate("s1", "sections/broken.liquid", "{% if %}") // no condition, no endif
	l := newLoader(t, ms, true)

	_, err := l.LoadCompiled(context.Background(), "s1", "sections/broken.liquid")
	require.Error(t, err)
	assert.True(t, forgerrors.IsType(err, forgerrors.ErrRender))
}

func TestInvalidate_ClearsRawAndCompiled(t *testing.T) {
	ms := seededStore()
	l := newLoader(t, ms, true)

	_, err := l.LoadCompiled(context.Background(), "s1", "sections/header.liquid")
	require.NoError(t, err)

	l.Invalidate("s1", "sections/header.liquid")

	before := ms.GetCount()
	_, err = l.LoadCompiled(context.Background(), "s1", "sections/header.liquid")
	require.NoError(t, err)
	assert.Equal(t, before+1, ms.GetCount(), "invalidation forces a storage reload")
}

func TestInvalidateStore(t *testing.T) {
	ms := seededStore()
	l := newLoader(t, ms, true)

	_, err := l.LoadCompiled(context.Background(), "s1", "sections/header.liquid")
	require.NoError(t, err)
	_, err = l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
	require.NoError(t, err)

	l.InvalidateStore("s1")

	before := ms.GetCount()
	_, err = l.LoadRaw(context.Background(), "s1", "layout/theme.liquid")
	require.NoError(t, err)
	assert.Equal(t, before+1, ms.GetCount())
}

func TestLoadPageConfig(t *testing.T) {
	l := newLoader(t, seededStore(), true)

	cfg, err := l.LoadPageConfig(context.Background(), "s1", "index")
	require.NoError(t, err)

	ordered := cfg.OrderedSections()
	require.Len(t, ordered, 1, "disabled and unknown ids are skipped")
	assert.Equal(t, "hero", ordered[0].ID)
	assert.Equal(t, "hero", ordered[0].Config.Type)
	assert.Equal(t, "Hi", ordered[0].Config.Settings["title"])
}

func TestConvenienceLoads(t *testing.T) {
	l := newLoader(t, seededStore(), true)
	ctx := context.Background()

	layout, err := l.LoadLayout(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, layout, "content_for_layout")

	section, err := l.LoadSection(ctx, "s1", "header")
	require.NoError(t, err)
	assert.Equal(t, "{{ shop.name }}", section)

	snippet, err := l.LoadSnippet(ctx, "s1", "price")
	require.NoError(t, err)
	assert.Equal(t, "{{ product.price }}", snippet)

	assert.True(t, l.HasTemplate(ctx, "s1", "layout/theme.liquid"))
	assert.False(t, l.HasTemplate(ctx, "s1", "layout/other.liquid"))
}
