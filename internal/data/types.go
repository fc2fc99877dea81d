// Package data loads the dynamic storefront data a page's template
// set requires: products, collections, pages, navigation, cart. Fetches
// run concurrently per requirement kind, go through the shared cache,
// and degrade to empty values for secondary data so one broken slot
// never takes down a page.
package data

import "time"

// Product is a backend product record.
type Product struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"storeId"`
	Title          string    `json:"title"`
	Handle         string    `json:"handle,omitempty"`
	Description    string    `json:"description,omitempty"`
	Vendor         string    `json:"vendor,omitempty"`
	Price          int64     `json:"price"`
	CompareAtPrice int64     `json:"compareAtPrice,omitempty"`
	Currency       string    `json:"currency"`
	Images         []string  `json:"images,omitempty"`
	Variants       []Variant `json:"variants,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Status         string    `json:"status"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Variant is a purchasable option of a product. Prices are minor
// units (cents).
type Variant struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
	SKU       string `json:"sku,omitempty"`
}

// Collection is a curated group of products.
type Collection struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"storeId"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	SortOrder   string    `json:"sortOrder,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Page is a static content page.
type Page struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Title     string    `json:"title"`
	Handle    string    `json:"handle,omitempty"`
	Body      string    `json:"body,omitempty"`
	Visible   bool      `json:"visible"`
	PageType  string    `json:"pageType,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Policy is one store policy document (refunds, privacy, terms).
type Policy struct {
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// NavigationMenu is a named list of links.
type NavigationMenu struct {
	Handle string    `json:"handle"`
	Title  string    `json:"title"`
	Items  []NavItem `json:"items,omitempty"`
}

// NavItem is one entry in a navigation menu.
type NavItem struct {
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Active bool      `json:"active,omitempty"`
	Items  []NavItem `json:"items,omitempty"`
}

// Cart is a shopper's current cart.
type Cart struct {
	ID         string     `json:"id"`
	StoreID    string     `json:"storeId"`
	Items      []CartItem `json:"items,omitempty"`
	ItemCount  int        `json:"itemCount"`
	TotalPrice int64      `json:"totalPrice"`
	Currency   string     `json:"currency"`
}

// CartItem is one line in a cart.
type CartItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
}

// EmptyCart returns the cart used when no session cart exists.
func EmptyCart(storeID, currency string) *Cart {
	return &Cart{StoreID: storeID, Currency: currency, Items: []CartItem{}}
}
