// Package tenant resolves incoming domains to store records and caches
// the results, including negative ones, so a flood of requests for an
// unknown host cannot hammer the backend.
package tenant

// Store is the tenant record consumed by the render context. Read-only
// during a render; resolved once per request.
type Store struct {
	ID           string `json:"storeId"`
	Name         string `json:"storeName"`
	Slug         string `json:"storeSlug"`
	CustomDomain string `json:"customDomain,omitempty"`
	Status       string `json:"storeStatus"`
	Currency     string `json:"storeCurrency"`
	Locale       string `json:"storeLocale"`
	Description  string `json:"storeDescription,omitempty"`
	Email        string `json:"contactEmail,omitempty"`
	Phone        string `json:"contactPhone,omitempty"`
	Address      string `json:"storeAddress,omitempty"`
	Theme        string `json:"storeTheme,omitempty"`
	Logo         string `json:"storeLogo,omitempty"`
	Favicon      string `json:"storeFavicon,omitempty"`
	Banner       string `json:"storeBanner,omitempty"`
}

// Active reports whether the store may serve its storefront.
func (s *Store) Active() bool {
	return s.Status == "active"
}
