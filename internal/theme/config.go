package theme

import (
	"context"
	"encoding/json"

	"github.com/fasttify/liquidforge/internal/errors"
	"github.com/fasttify/liquidforge/internal/storage"
)

// TemplateConfig is the parsed form of a templates/*.json page file:
// a set of configured section instances plus their render order.
type TemplateConfig struct {
	Sections map[string]SectionConfig `json:"sections"`
	Order    []string                 `json:"order"`
}

// SectionConfig is one section instance on a page.
type SectionConfig struct {
	Type       string                 `json:"type"`
	Settings   map[string]any         `json:"settings,omitempty"`
	Blocks     map[string]BlockConfig `json:"blocks,omitempty"`
	BlockOrder []string               `json:"block_order,omitempty"`
	Disabled   bool                   `json:"disabled,omitempty"`
}

// BlockConfig is one block inside a configured section.
type BlockConfig struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

// OrderedSections returns the page's enabled sections in render order.
// Ids present in Order but missing from Sections are skipped.
func (c *TemplateConfig) OrderedSections() []ConfiguredSection {
	out := make([]ConfiguredSection, 0, len(c.Order))
	for _, id := range c.Order {
		sec, ok := c.Sections[id]
		if !ok || sec.Disabled {
			continue
		}
		out = append(out, ConfiguredSection{ID: id, Config: sec})
	}
	return out
}

// ConfiguredSection pairs a section instance id with its config.
type ConfiguredSection struct {
	ID     string
	Config SectionConfig
}

// LoadPageConfig loads and parses templates/{name}.json for a store.
// A missing file returns the typed not-found error; malformed JSON is
// a render error since the theme shipped a broken config.
func (l *Loader) LoadPageConfig(ctx context.Context, storeID, name string) (*TemplateConfig, error) {
	path := "templates/" + name + ".json"
	src, err := l.LoadRaw(ctx, storeID, path)
	if err != nil {
		return nil, err
	}

	var cfg TemplateConfig
	if err := json.Unmarshal([]byte(src), &cfg); err != nil {
		return nil, errors.NewRenderError("parsing page config: "+path, err).WithDetail("path", path)
	}
	return &cfg, nil
}

// HasTemplate reports whether the store's theme contains the given
// template path.
func (l *Loader) HasTemplate(ctx context.Context, storeID, path string) bool {
	_, err := l.LoadRaw(ctx, storeID, storage.NormalizeTemplatePath(path))
	return err == nil
}
