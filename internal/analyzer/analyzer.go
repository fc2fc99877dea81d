// Package analyzer statically inspects Liquid template source and
// derives the set of data fetches a page needs before rendering:
// which storefront objects are referenced, with what options (limit,
// handle), which sections and snippets the template pulls in, and
// whether it paginates.
//
// Detection is pattern-based over raw source. That can miss objects
// reached through unusual expressions, but it keeps analysis fast and
// independent of template execution.
package analyzer

import (
	"context"
	"sort"

	"github.com/fasttify/liquidforge/internal/logging"
)

// Kind enumerates the data requirements a template can express.
type Kind string

const (
	KindProducts             Kind = "products"
	KindCollectionProducts   Kind = "collection_products"
	KindCollections          Kind = "collections"
	KindSpecificCollection   Kind = "specific_collection"
	KindSpecificProduct      Kind = "specific_product"
	KindProductsByCollection Kind = "products_by_collection"
	KindRelatedProducts      Kind = "related_products"
	KindProduct              Kind = "product"
	KindCollection           Kind = "collection"
	KindCart                 Kind = "cart"
	KindLinklists            Kind = "linklists"
	KindShop                 Kind = "shop"
	KindSpecificPage         Kind = "specific_page"
	KindPages                Kind = "pages"
	KindPage                 Kind = "page"
	KindPolicies             Kind = "policies"
	KindBlog                 Kind = "blog"
	KindPagination           Kind = "pagination"
	KindCheckout             Kind = "checkout"
)

// Options carries the load parameters extracted for one requirement:
// "limit" (int), "handle"/"collectionHandle" (string), "handles"
// ([]string), "nextToken" (string).
type Options map[string]any

// Limit returns the "limit" option, or def when absent.
func (o Options) Limit(def int) int {
	if v, ok := o["limit"].(int); ok {
		return v
	}
	return def
}

// Handles returns the "handles" option.
func (o Options) Handles() []string {
	if v, ok := o["handles"].([]string); ok {
		return v
	}
	return nil
}

// Analysis is the result of analyzing one template or a whole set.
type Analysis struct {
	RequiredData  map[Kind]Options
	HasPagination bool
	UsedSections  []string
	LiquidObjects []string
	Dependencies  []string
}

func newAnalysis() *Analysis {
	return &Analysis{RequiredData: make(map[Kind]Options)}
}

// Requires reports whether the analysis contains a requirement kind.
func (a *Analysis) Requires(kind Kind) bool {
	_, ok := a.RequiredData[kind]
	return ok
}

func (a *Analysis) addSection(name string) {
	a.UsedSections = appendUnique(a.UsedSections, name)
}

func (a *Analysis) addObject(name string) {
	a.LiquidObjects = appendUnique(a.LiquidObjects, name)
}

func (a *Analysis) addDependency(path string) {
	a.Dependencies = appendUnique(a.Dependencies, path)
}

// sortSets orders the slice fields so equal analyses compare equal
// regardless of detection order.
func (a *Analysis) sortSets() {
	sort.Strings(a.UsedSections)
	sort.Strings(a.LiquidObjects)
	sort.Strings(a.Dependencies)
}

// Merge folds other into a. Requirement options are shallow-merged
// with other's values winning on key collision; set fields are
// unioned.
func (a *Analysis) Merge(other *Analysis) {
	for kind, opts := range other.RequiredData {
		existing, ok := a.RequiredData[kind]
		if !ok {
			a.RequiredData[kind] = opts
			continue
		}
		merged := make(Options, len(existing)+len(opts))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range opts {
			merged[k] = v
		}
		a.RequiredData[kind] = merged
	}
	a.HasPagination = a.HasPagination || other.HasPagination
	for _, s := range other.UsedSections {
		a.addSection(s)
	}
	for _, o := range other.LiquidObjects {
		a.addObject(o)
	}
	for _, d := range other.Dependencies {
		a.addDependency(d)
	}
}

// SourceLoader supplies template source for dependency analysis.
// theme.Loader satisfies it.
type SourceLoader interface {
	LoadRaw(ctx context.Context, storeID, path string) (string, error)
}

// Analyzer derives data requirements from template source.
type Analyzer struct {
	loader SourceLoader
	log    logging.Logger
}

// New creates an analyzer. loader may be nil when only single-template
// analysis is needed.
func New(loader SourceLoader, log logging.Logger) *Analyzer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Analyzer{loader: loader, log: log.WithComponent("analyzer")}
}

// Analyze inspects one template's source. Never fails: whatever could
// be extracted is returned.
func (an *Analyzer) Analyze(source, path string) *Analysis {
	a := newAnalysis()
	detectObjects(source, a)
	detectPagination(source, a)
	detectDependencies(source, a)
	inferFromPath(path, a)
	a.sortSets()
	return a
}

// AnalyzeTemplateSet analyzes a set of page templates plus, recursively,
// every section and snippet they depend on, loading dependency source
// through the loader. A visited set guarantees each path is analyzed
// exactly once even with circular render references; per-file load or
// analysis problems are logged and skipped.
func (an *Analyzer) AnalyzeTemplateSet(ctx context.Context, storeID string, pages map[string]string) *Analysis {
	combined := newAnalysis()
	visited := make(map[string]bool, len(pages))
	var queue []string

	// Seed with the provided sources in stable order.
	paths := make([]string, 0, len(pages))
	for p := range pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		visited[p] = true
		sub := an.Analyze(pages[p], p)
		combined.Merge(sub)
		queue = append(queue, sub.Dependencies...)
	}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		if an.loader == nil {
			continue
		}
		source, err := an.loader.LoadRaw(ctx, storeID, path)
		if err != nil {
			an.log.Warn(ctx, err, "skipping unresolvable dependency", "path", path, "store_id", storeID)
			continue
		}
		sub := an.Analyze(source, path)
		combined.Merge(sub)
		queue = append(queue, sub.Dependencies...)
	}

	combined.sortSets()
	return combined
}

func appendUnique(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}
