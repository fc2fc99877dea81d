package liquid

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AssetCollector accumulates the CSS and JS fragments produced by
// style/stylesheet/javascript tags during one render, deduplicated by
// section id so a section rendered twice contributes its styles once.
// The renderer injects the combined bundles into the final document.
type AssetCollector struct {
	mu      sync.Mutex
	cssIDs  []string
	css     map[string]string
	jsIDs   []string
	js      map[string]string
}

// NewAssetCollector creates an empty collector.
func NewAssetCollector() *AssetCollector {
	return &AssetCollector{
		css: make(map[string]string),
		js:  make(map[string]string),
	}
}

// AddCSS stores a CSS fragment under a section id. An empty id gets a
// random one so anonymous fragments still collect.
func (a *AssetCollector) AddCSS(sectionID, css string) {
	css = normalizeCSS(css)
	if css == "" {
		return
	}
	if sectionID == "" {
		sectionID = "style-" + uuid.NewString()[:8]
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, seen := a.css[sectionID]; !seen {
		a.cssIDs = append(a.cssIDs, sectionID)
	}
	a.css[sectionID] = css
}

// AddJS stores a JS fragment under a section id.
func (a *AssetCollector) AddJS(sectionID, js string) {
	js = strings.TrimSpace(js)
	if js == "" {
		return
	}
	if sectionID == "" {
		sectionID = "script-" + uuid.NewString()[:8]
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, seen := a.js[sectionID]; !seen {
		a.jsIDs = append(a.jsIDs, sectionID)
	}
	a.js[sectionID] = js
}

// CSS returns the combined stylesheet in collection order.
func (a *AssetCollector) CSS() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	parts := make([]string, 0, len(a.cssIDs))
	for _, id := range a.cssIDs {
		parts = append(parts, a.css[id])
	}
	return strings.Join(parts, "\n")
}

// CSSFor returns the fragment collected for one section id.
func (a *AssetCollector) CSSFor(sectionID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	css, ok := a.css[sectionID]
	return css, ok
}

// JS returns the combined script in collection order.
func (a *AssetCollector) JS() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	parts := make([]string, 0, len(a.jsIDs))
	for _, id := range a.jsIDs {
		parts = append(parts, a.js[id])
	}
	return strings.Join(parts, "\n")
}

// Empty reports whether nothing was collected.
func (a *AssetCollector) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.css) == 0 && len(a.js) == 0
}

// normalizeCSS collapses whitespace runs so equivalent fragments
// compare and deduplicate cleanly.
func normalizeCSS(css string) string {
	return strings.Join(strings.Fields(css), " ")
}
