package ops

import (
	"context"

	"stencil/internal/db"
	"stencil/internal/document"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	DocumentID string
	// IncludeContent loads the rendered bytes from the blob store.
	IncludeContent bool
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	Document *document.Instance `json:"document"`
	Content  string             `json:"content,omitempty"`
}

// Fetch retrieves a document instance, optionally with its rendered output.
func Fetch(ctx context.Context, env *Env, input FetchInput) (*FetchOutput, error) {
	doc, err := db.GetDocument(env.DB, input.DocumentID)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{Document: doc}
	if input.IncludeContent && doc.OutputRef != "" {
		data, err := env.Blobs.Get(doc.OutputRef)
		if err != nil {
			return nil, err
		}
		out.Content = string(data)
	}
	return out, nil
}
