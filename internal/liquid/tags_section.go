package liquid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/osteele/liquid/render"

	"github.com/fasttify/liquidforge/internal/theme"
)

// sectionTag renders {% section 'name' %}: it loads the section file,
// binds the page config instance matching the section type, and
// renders the source against the full page scope. A missing section
// degrades to an HTML comment rather than failing the page.
func (e *Engine) sectionTag(c render.Context) (string, error) {
	name := unquote(strings.TrimSpace(c.TagArgs()))
	if name == "" {
		return "", nil
	}

	s := state(c)
	log := e.stateLogger(s)
	if s == nil || (s.Sources == nil && s.Preloaded == nil) {
		return sectionMissing(name), nil
	}

	src, ok := s.Preloaded[name]
	if !ok {
		var err error
		src, err = s.Sources.LoadSection(s.Ctx, s.StoreID, name)
		if err != nil {
			log.Warn(renderCtx(c), err, "section not found", "section", name, "store_id", s.StoreID)
			return sectionMissing(name), nil
		}
	}

	instanceID, sectionCtx := sectionInstance(name, s.Config)

	prevID := s.CurrentSectionID
	s.CurrentSectionID = instanceID
	defer func() { s.CurrentSectionID = prevID }()

	bindings := make(map[string]any, len(s.Bindings)+1)
	for k, v := range s.Bindings {
		bindings[k] = v
	}
	bindings["section"] = sectionCtx

	out, err := e.RenderSource(src, bindings, s)
	if err != nil {
		log.Warn(renderCtx(c), err, "section failed to render", "section", name, "store_id", s.StoreID)
		return fmt.Sprintf("<!-- section '%s' failed to render -->", name), nil
	}
	return out, nil
}

func sectionMissing(name string) string {
	return fmt.Sprintf("<!-- section '%s' not found -->", name)
}

// sectionInstance finds the page config instance whose type matches
// the section file name and builds the section drop bound during its
// render. Without a configured instance the section still renders,
// keyed by its own name with empty settings.
func sectionInstance(name string, cfg *theme.TemplateConfig) (string, map[string]any) {
	id := name
	settings := map[string]any{}
	blocks := []map[string]any{}

	if cfg != nil {
		for _, inst := range cfg.OrderedSections() {
			if inst.Config.Type != name {
				continue
			}
			id = inst.ID
			if inst.Config.Settings != nil {
				settings = inst.Config.Settings
			}
			blocks = orderedBlocks(inst.Config)
			break
		}
	}

	return id, map[string]any{
		"id":       id,
		"type":     name,
		"settings": settings,
		"blocks":   blocks,
	}
}

func orderedBlocks(cfg theme.SectionConfig) []map[string]any {
	order := cfg.BlockOrder
	if len(order) == 0 {
		for blockID := range cfg.Blocks {
			order = append(order, blockID)
		}
		sort.Strings(order)
	}
	blocks := make([]map[string]any, 0, len(order))
	for _, blockID := range order {
		block, ok := cfg.Blocks[blockID]
		if !ok {
			continue
		}
		settings := block.Settings
		if settings == nil {
			settings = map[string]any{}
		}
		blocks = append(blocks, map[string]any{
			"id":       blockID,
			"type":     block.Type,
			"settings": settings,
		})
	}
	return blocks
}

// unquote strips one layer of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
