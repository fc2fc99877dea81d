package cache

import "strings"

// Cache keys follow the category_store_qualifier convention so that
// InvalidateStore can find every tenant-scoped entry by marker and
// categoryOf can attribute hits and misses.

// TemplateKey names a raw template source entry.
func TemplateKey(storeID, path string) string {
	return "template_" + storeID + "_" + path
}

// CompiledTemplateKey names a parsed template entry.
func CompiledTemplateKey(storeID, path string) string {
	return "compiled_" + storeID + "_" + path
}

// PageKey names a fully rendered page entry. The qualifier includes
// path and the significant query parameters.
func PageKey(storeID, path, qualifier string) string {
	if qualifier == "" {
		return "page_" + storeID + "_" + path
	}
	return "page_" + storeID + "_" + path + "?" + qualifier
}

// DomainKey names a domain-resolution entry. Domains are global, not
// store-scoped, so the key has no store marker.
func DomainKey(domain string) string {
	return "domain_" + domain
}

// DataKey names a loaded-data entry for one requirement kind.
func DataKey(storeID, kind, qualifier string) string {
	if qualifier == "" {
		return "data_" + kind + "_" + storeID
	}
	return "data_" + kind + "_" + storeID + "_" + qualifier
}

// HandleMapKey names the per-store handle→id lookup map.
func HandleMapKey(storeID, entity string) string {
	return "handles_" + entity + "_" + storeID
}

// SearchKey names a search-result data entry.
func SearchKey(storeID, query string) string {
	return "data_search_" + storeID + "_" + query
}

// categoryOf maps a key back to its TTL category for metrics.
func categoryOf(key string) string {
	switch {
	case strings.HasPrefix(key, "template_"), strings.HasPrefix(key, "compiled_"):
		return CategoryTemplate
	case strings.HasPrefix(key, "page_"):
		return CategoryPage
	case strings.HasPrefix(key, "domain_"):
		return CategoryDomain
	default:
		return CategoryData
	}
}
