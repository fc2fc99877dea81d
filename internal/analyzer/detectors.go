package analyzer

import (
	"regexp"
	"strconv"
	"strings"
)

// Default limits applied when a reference carries no explicit limit.
const (
	defaultProductsLimit           = 20
	defaultCollectionsLimit        = 10
	defaultCollectionProductsLimit = 8
	defaultRelatedProductsLimit    = 4
	defaultPagesLimit              = 10
	inferredIndexCollectionsLimit  = 6
)

// detector pairs a requirement kind with its presence test and options
// extractor. The table is the single source of truth: a new kind is a
// new row, not new branching.
type detector struct {
	kind    Kind
	match   func(content string) bool
	extract func(content string) Options
}

var (
	reProductsRef           = regexp.MustCompile(`\{\{\s*products\s*[|}]`)
	reProductsLimit         = regexp.MustCompile(`(?i)products[^}]*limit:\s*(\d+)`)
	reCollectionProducts    = regexp.MustCompile(`collections\.([a-zA-Z0-9_-]+)\.products`)
	reCollectionProductsLim = regexp.MustCompile(`(?i)collections\.([a-zA-Z0-9_-]+)\.products[^}]*limit:\s*(\d+)`)
	reCollectionsRef        = regexp.MustCompile(`\{\{\s*collections\s*[|}]`)
	reCollectionsLimit      = regexp.MustCompile(`(?i)collections[^}]*limit:\s*(\d+)`)
	reRelated               = regexp.MustCompile(`related_products|product\s*\|\s*related`)
	reRelatedLimit          = regexp.MustCompile(`(?i)related_products[^}]*limit:\s*(\d+)`)
	reBareLimit             = regexp.MustCompile(`(?i)limit:\s*(\d+)`)
	reProductDot            = regexp.MustCompile(`\{\{\s*product\.`)
	reCollectionDot         = regexp.MustCompile(`\{\{\s*collection\.`)
	reCartDot               = regexp.MustCompile(`\{\{\s*cart\.`)
	reLinklistsDot          = regexp.MustCompile(`\{\{\s*linklists\.`)
	reShopDot               = regexp.MustCompile(`\{\{\s*shop\.`)
	rePagesRef              = regexp.MustCompile(`\{\{\s*pages\s*[|}]`)
	rePagesLimit            = regexp.MustCompile(`(?i)pages[^}]*limit:\s*(\d+)`)
	rePageDot               = regexp.MustCompile(`\{\{\s*page\.`)
	rePolicies              = regexp.MustCompile(`for\s+item\s+in\s+policies|for\s+policy\s+in\s+policies|\{\{\s*policies\s*[|}]`)
	reBlogDot               = regexp.MustCompile(`\{\{\s*blog\.`)
	rePaginateOpen          = regexp.MustCompile(`\{%\s*paginate`)
	reCheckoutDot           = regexp.MustCompile(`\{\{\s*checkout\.`)

	rePaginateTag  = regexp.MustCompile(`\{%\s*paginate\s+([^%]+)%\}`)
	rePaginateExpr = regexp.MustCompile(`(?i)paginate\s+(\S+)\s+by\s+(\d+)`)
	reSectionTag   = regexp.MustCompile(`\{%\s*section\s+['"]([^'"]+)['"]\s*%\}`)
	reRenderTag    = regexp.MustCompile(`\{%\s*render\s+['"]([^'"]+)['"]`)
	reIncludeTag   = regexp.MustCompile(`\{%\s*include\s+['"]([^'"]+)['"]`)
)

// detectors is an ordered slice so analysis output is deterministic.
var detectors = []detector{
	{KindProducts, reProductsRef.MatchString, extractProducts},
	{KindCollectionProducts, reCollectionProducts.MatchString, extractCollectionProducts},
	{KindCollections, reCollectionsRef.MatchString, extractCollections},
	{KindSpecificCollection, matchSpecificCollection, extractSpecificCollection},
	{KindSpecificProduct, matchSpecificProduct, extractSpecificProduct},
	{KindProductsByCollection, reCollectionProducts.MatchString, extractProductsByCollection},
	{KindRelatedProducts, reRelated.MatchString, extractRelated},
	{KindProduct, reProductDot.MatchString, extractNothing},
	{KindCollection, reCollectionDot.MatchString, extractNothing},
	{KindCart, reCartDot.MatchString, extractNothing},
	{KindLinklists, reLinklistsDot.MatchString, extractNothing},
	{KindShop, reShopDot.MatchString, extractNothing},
	{KindSpecificPage, matchSpecificPage, extractSpecificPage},
	{KindPages, rePagesRef.MatchString, extractPages},
	{KindPage, rePageDot.MatchString, extractPage},
	{KindPolicies, rePolicies.MatchString, extractNothing},
	{KindBlog, reBlogDot.MatchString, extractNothing},
	{KindPagination, rePaginateOpen.MatchString, extractNothing},
	{KindCheckout, reCheckoutDot.MatchString, extractNothing},
}

func detectObjects(content string, a *Analysis) {
	for _, d := range detectors {
		if !d.match(content) {
			continue
		}
		a.addObject(string(d.kind))
		a.RequiredData[d.kind] = d.extract(content)
	}
}

// detectPagination marks the analysis paginated and lets the paginate
// count overwrite whatever limit an ambient reference produced.
func detectPagination(content string, a *Analysis) {
	tags := rePaginateTag.FindAllString(content, -1)
	if len(tags) == 0 {
		return
	}
	a.HasPagination = true

	for _, tag := range tags {
		m := rePaginateExpr.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		expr := m[1]
		limit, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(expr, "collection.products"):
			a.RequiredData[KindCollection] = Options{"limit": limit}
		case strings.Contains(expr, "products"):
			a.RequiredData[KindProducts] = Options{"limit": limit}
		case strings.Contains(expr, "collections"):
			a.RequiredData[KindCollections] = Options{"limit": limit}
		}
	}
}

func detectDependencies(content string, a *Analysis) {
	for _, m := range reSectionTag.FindAllStringSubmatch(content, -1) {
		a.addSection(m[1])
		a.addDependency("sections/" + m[1] + ".liquid")
	}
	for _, re := range []*regexp.Regexp{reRenderTag, reIncludeTag} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			a.addDependency("snippets/" + m[1] + ".liquid")
		}
	}
}

// inferFromPath adds the implicit requirements of a page type, plus
// the cart/linklists/shop trio every page needs for header and nav.
func inferFromPath(path string, a *Analysis) {
	switch {
	case strings.Contains(path, "index"):
		if !a.Requires(KindCollections) {
			a.RequiredData[KindCollections] = Options{"limit": inferredIndexCollectionsLimit}
		}
	case strings.Contains(path, "product"):
		a.RequiredData[KindProduct] = Options{}
	case strings.Contains(path, "collection"):
		a.RequiredData[KindCollection] = Options{}
	case strings.Contains(path, "cart"):
		a.RequiredData[KindCart] = Options{}
	}

	for _, kind := range []Kind{KindCart, KindLinklists, KindShop} {
		if !a.Requires(kind) {
			a.RequiredData[kind] = Options{}
		}
	}
}

func extractNothing(string) Options { return Options{} }

func extractProducts(content string) Options {
	if m := reProductsLimit.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Options{"limit": n}
		}
	}
	return Options{"limit": defaultProductsLimit}
}

func extractCollections(content string) Options {
	if m := reCollectionsLimit.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Options{"limit": n}
		}
	}
	return Options{"limit": defaultCollectionsLimit}
}

func extractCollectionProducts(content string) Options {
	if m := reCollectionProductsLim.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return Options{"collectionHandle": m[1], "limit": n}
		}
	}
	if m := reCollectionProducts.FindStringSubmatch(content); m != nil {
		return Options{"collectionHandle": m[1], "limit": defaultCollectionProductsLimit}
	}
	return Options{"limit": defaultCollectionProductsLimit}
}

func extractProductsByCollection(content string) Options {
	limit := defaultCollectionProductsLimit
	if m := reBareLimit.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			limit = n
		}
	}
	var handles []string
	for _, m := range reCollectionProducts.FindAllStringSubmatch(content, -1) {
		handles = appendUnique(handles, m[1])
	}
	return Options{"handles": handles, "limit": limit}
}

func extractRelated(content string) Options {
	if m := reRelatedLimit.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Options{"limit": n}
		}
	}
	return Options{"limit": defaultRelatedProductsLimit}
}

func extractPages(content string) Options {
	if m := rePagesLimit.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Options{"limit": n}
		}
	}
	return Options{"limit": defaultPagesLimit}
}

func extractSpecificCollection(content string) Options {
	return Options{"handles": objectHandles(content, "collections", true)}
}

func extractSpecificProduct(content string) Options {
	return Options{"handles": bracketHandles(content, "products")}
}

func extractSpecificPage(content string) Options {
	return Options{"handles": objectHandles(content, "pages", true)}
}

func extractPage(content string) Options {
	if handles := objectHandles(content, "pages", true); len(handles) > 0 {
		return Options{"handles": handles}
	}
	return Options{}
}

func matchSpecificCollection(content string) bool {
	return len(objectHandles(content, "collections", true)) > 0
}

func matchSpecificProduct(content string) bool {
	return len(bracketHandles(content, "products")) > 0
}

func matchSpecificPage(content string) bool {
	return len(objectHandles(content, "pages", true)) > 0
}

var (
	bracketRes = map[string]*regexp.Regexp{
		"products":    regexp.MustCompile(`products\[['"]([^'"]+)['"]\]`),
		"collections": regexp.MustCompile(`collections\[['"]([^'"]+)['"]\]`),
		"pages":       regexp.MustCompile(`pages\[['"]([^'"]+)['"]\]`),
	}
	dotRes = map[string]*regexp.Regexp{
		"collections": regexp.MustCompile(`collections\.([a-zA-Z0-9_-]+)`),
		"pages":       regexp.MustCompile(`pages\.([a-zA-Z0-9_-]+)`),
	}
)

// bracketHandles extracts H from object['H'] / object["H"] accesses.
func bracketHandles(content, object string) []string {
	var handles []string
	for _, m := range bracketRes[object].FindAllStringSubmatch(content, -1) {
		handles = appendUnique(handles, m[1])
	}
	return handles
}

// objectHandles extracts handles from both bracket and dot access. Dot
// access only counts when the handle is not followed by a further
// property hop (so collections.sale.products stays out of
// specific_collection), a check RE2 cannot express as a lookahead.
func objectHandles(content, object string, includeDot bool) []string {
	handles := bracketHandles(content, object)
	if !includeDot {
		return handles
	}
	for _, idx := range dotRes[object].FindAllStringSubmatchIndex(content, -1) {
		handle := content[idx[2]:idx[3]]
		rest := content[idx[3]:]
		if len(rest) >= 2 && rest[0] == '.' && isWordChar(rest[1]) {
			continue
		}
		handles = appendUnique(handles, handle)
	}
	return handles
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
