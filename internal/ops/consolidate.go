package ops

import (
	"context"

	"stencil/internal/consolidate"
	"stencil/internal/errors"
	"stencil/internal/field"
)

// ConsolidateInput contains parameters for the Consolidate operation.
type ConsolidateInput struct {
	TemplateIDs []string
}

// ConsolidateOutput contains the unified input surface for a set of
// templates.
type ConsolidateOutput struct {
	Fields []*field.UnifiedField `json:"fields"`
	// TotalPlaceholders is the placeholder count summed over the templates,
	// before consolidation collapsed equivalents.
	TotalPlaceholders int `json:"total_placeholders"`
}

// Consolidate merges the placeholders of several templates into one minimal
// field list: semantically equivalent placeholders across templates collapse
// to a single entry that is asked for once.
func Consolidate(ctx context.Context, env *Env, input ConsolidateInput) (*ConsolidateOutput, error) {
	if len(input.TemplateIDs) == 0 {
		return nil, errors.NewInvalidRequest("template_ids must not be empty")
	}

	descriptors := make([]*field.TemplateDescriptor, 0, len(input.TemplateIDs))
	total := 0
	for _, id := range input.TemplateIDs {
		d, err := env.descriptor(id)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
		total += d.PlaceholderCount()
	}

	fields, err := consolidate.Consolidate(descriptors)
	if err != nil {
		return nil, err
	}

	return &ConsolidateOutput{Fields: fields, TotalPlaceholders: total}, nil
}
