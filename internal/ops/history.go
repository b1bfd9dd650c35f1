package ops

import (
	"context"

	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/errors"
)

// HistoryInput contains parameters for the History operation. Exactly one
// of LineageID or DocumentID must be set; a document id resolves to its
// lineage.
type HistoryInput struct {
	LineageID  string
	DocumentID string
}

// HistoryOutput contains a lineage's full version history and edit ledger.
type HistoryOutput struct {
	LineageID string                 `json:"lineage_id"`
	Instances []*document.Instance   `json:"instances"`
	Edits     []*document.EditRecord `json:"edits"`
}

// History returns every instance of a lineage in generation order together
// with its edit ledger.
func History(ctx context.Context, env *Env, input HistoryInput) (*HistoryOutput, error) {
	lineageID := input.LineageID
	switch {
	case lineageID != "" && input.DocumentID != "":
		return nil, errors.NewInvalidRequest("specify lineage_id or document_id, not both")
	case lineageID == "" && input.DocumentID == "":
		return nil, errors.NewInvalidRequest("lineage_id or document_id is required")
	case lineageID == "":
		doc, err := db.GetDocument(env.DB, input.DocumentID)
		if err != nil {
			return nil, err
		}
		lineageID = doc.LineageID
	}

	instances, err := db.ListLineage(env.DB, lineageID)
	if err != nil {
		return nil, err
	}
	edits, err := db.ListEditRecords(env.DB, lineageID)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		LineageID: lineageID,
		Instances: instances,
		Edits:     edits,
	}, nil
}
