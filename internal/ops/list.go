package ops

import (
	"context"

	"stencil/internal/db"
	"stencil/internal/document"
)

// ListTemplatesInput contains the input parameters for the ListTemplates operation.
type ListTemplatesInput struct{}

// ListTemplatesOutput contains the result of the ListTemplates operation.
type ListTemplatesOutput struct {
	Templates []*document.Template `json:"templates"`
	Total     int                  `json:"total"`
}

// ListTemplates returns every registered template, newest first.
func ListTemplates(_ context.Context, env *Env, _ ListTemplatesInput) (*ListTemplatesOutput, error) {
	templates, err := db.ListTemplates(env.DB)
	if err != nil {
		return nil, err
	}
	return &ListTemplatesOutput{Templates: templates, Total: len(templates)}, nil
}
