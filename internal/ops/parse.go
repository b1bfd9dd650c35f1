package ops

import (
	"context"
	"strings"

	"stencil/internal/cache"
	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/errors"
	"stencil/internal/extract"
	"stencil/internal/field"
)

// ParseTemplateInput contains parameters for the ParseTemplate operation.
type ParseTemplateInput struct {
	Name   string // required, unique
	Format string // "text" or "markdown"
	Body   string // required, raw template content
}

// ParseTemplateOutput contains the result of the ParseTemplate operation.
type ParseTemplateOutput struct {
	Template     *document.Template       `json:"template"`
	Placeholders []*field.PlaceholderSpec `json:"placeholders"`
}

// ParseTemplate extracts placeholders from a template, stores it, and warms
// the descriptor cache. Registering the same body under an existing name is
// idempotent; a different body re-uploads the template in place, keeping its
// id. Documents already generated from the old body are unaffected.
func ParseTemplate(ctx context.Context, env *Env, input ParseTemplateInput) (*ParseTemplateOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if input.Body == "" {
		return nil, errors.NewInvalidRequest("body is required")
	}
	format := input.Format
	if format == "" {
		format = extract.FormatText
	}

	body := []byte(input.Body)
	desc, err := extract.Extract(body, format, env.Classifier)
	if err != nil {
		return nil, err
	}

	// Template bytes are content-addressed alongside generated output; the
	// blob ref is the content hash.
	hash, err := env.Blobs.Put(body)
	if err != nil {
		return nil, err
	}

	existing, err := db.GetTemplateByName(env.DB, name)
	if err == nil {
		if existing.ContentHash == hash {
			// Same content: idempotent re-registration.
			desc.TemplateID = existing.ID
			desc.ContentHash = hash
			env.Cache.Put(cache.Key{TemplateID: existing.ID, ContentHash: hash}, desc)
			return &ParseTemplateOutput{Template: existing, Placeholders: desc.Placeholders}, nil
		}

		// Re-upload: new content supersedes under the same id.
		existing.Format = format
		existing.ContentHash = hash
		existing.Body = input.Body
		existing.PlaceholderCount = desc.PlaceholderCount()
		existing.UpdatedAt = env.now().Unix()
		if err := db.UpdateTemplate(env.DB, existing); err != nil {
			return nil, err
		}

		desc.TemplateID = existing.ID
		desc.ContentHash = hash
		env.Cache.Invalidate(existing.ID)
		env.Cache.Put(cache.Key{TemplateID: existing.ID, ContentHash: hash}, desc)

		env.logger().Info("template re-uploaded",
			"template", existing.ID, "name", name,
			"placeholders", desc.PlaceholderCount())

		return &ParseTemplateOutput{Template: existing, Placeholders: desc.Placeholders}, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.now().Unix()

	tpl := &document.Template{
		ID:               id,
		Name:             name,
		Format:           format,
		ContentHash:      hash,
		Body:             input.Body,
		PlaceholderCount: desc.PlaceholderCount(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.InsertTemplate(env.DB, tpl); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("concurrent registration for template name")
		}
		return nil, err
	}

	desc.TemplateID = id
	desc.ContentHash = hash
	env.Cache.Put(cache.Key{TemplateID: id, ContentHash: hash}, desc)

	env.logger().Info("template parsed",
		"template", id, "name", name, "format", format,
		"placeholders", desc.PlaceholderCount())

	return &ParseTemplateOutput{Template: tpl, Placeholders: desc.Placeholders}, nil
}
