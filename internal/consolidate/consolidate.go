// Package consolidate merges placeholders across the templates of a batch
// into a minimal unified input set.
package consolidate

import (
	"sort"

	"stencil/internal/errors"
	"stencil/internal/field"
)

// group accumulates the specs sharing one canonical key.
type group struct {
	key      string
	kind     field.Kind
	required bool
	first    int // first-appearance order across the input sequence
	sources  []string
	byTmpl   map[string]*field.PlaceholderSpec
}

// Consolidate groups every placeholder across the input descriptors by
// canonical key and emits one UnifiedField per group, ordered by descending
// number of source templates (most broadly shared first), ties broken by
// first appearance. Fails with IncompatibleFieldKinds when two templates
// map the same key to incompatible kinds.
func Consolidate(descriptors []*field.TemplateDescriptor) ([]*field.UnifiedField, error) {
	groups := make(map[string]*group)
	order := 0

	for _, d := range descriptors {
		for _, spec := range d.Placeholders {
			g, ok := groups[spec.CanonicalKey]
			if !ok {
				g = &group{
					key:    spec.CanonicalKey,
					kind:   spec.Kind,
					first:  order,
					byTmpl: make(map[string]*field.PlaceholderSpec),
				}
				groups[spec.CanonicalKey] = g
				order++
			}

			if !g.kind.CompatibleWith(spec.Kind) {
				return nil, errors.NewIncompatibleFieldKinds(spec.CanonicalKey, string(g.kind), string(spec.Kind))
			}
			// Currency dominates a number/currency mix so the unified form
			// prompts for the stricter value.
			if g.kind == field.KindNumber && spec.Kind == field.KindCurrency {
				g.kind = field.KindCurrency
			}

			if spec.Required {
				g.required = true
			}
			if _, seen := g.byTmpl[d.TemplateID]; !seen {
				g.sources = append(g.sources, d.TemplateID)
				g.byTmpl[d.TemplateID] = spec
			}
		}
	}

	result := make([]*field.UnifiedField, 0, len(groups))
	for _, g := range groups {
		result = append(result, &field.UnifiedField{
			CanonicalKey: g.key,
			Kind:         g.kind,
			Required:     g.required,
			Sources:      g.sources,
			SourceMap:    g.byTmpl,
		})
	}

	firstOf := func(u *field.UnifiedField) int { return groups[u.CanonicalKey].first }
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if len(a.Sources) != len(b.Sources) {
			return len(a.Sources) > len(b.Sources)
		}
		return firstOf(a) < firstOf(b)
	})

	return result, nil
}
