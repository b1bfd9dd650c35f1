package ops

import (
	"context"

	"stencil/internal/assemble"
	"stencil/internal/billing"
	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/editcost"
	"stencil/internal/errors"
)

// ApplyEditInput contains parameters for the ApplyEdit operation.
type ApplyEditInput struct {
	DocumentID string
	// NewValues is the complete replacement snapshot, not a delta: keys
	// absent here count as removed.
	NewValues map[string]string
}

// ApplyEditOutput contains the result of the ApplyEdit operation.
type ApplyEditOutput struct {
	Decision editcost.Decision `json:"decision"`
	// Document is the instance carrying the edit: the same instance for a
	// free in-place edit, the fork for a paid one.
	Document *document.Instance `json:"document"`
	EditID   string             `json:"edit_id,omitempty"`
}

// ApplyEdit commits an edit to a document. Within the lineage's free quota
// the current instance is rewritten in place at no charge; past it, a flat
// fee is charged once and a forked instance supersedes the original.
// Concurrent edits on one lineage serialize; the second sees the first's
// result.
func ApplyEdit(ctx context.Context, env *Env, input ApplyEditInput) (*ApplyEditOutput, error) {
	doc, err := db.GetDocument(env.DB, input.DocumentID)
	if err != nil {
		return nil, err
	}

	unlock := env.Locks.Lock(doc.LineageID)
	defer unlock()

	// Re-read under the lock: a concurrent edit may have superseded or
	// rewritten the instance since the first read.
	doc, err = editableInstance(env, input.DocumentID)
	if err != nil {
		return nil, err
	}

	cycle := document.Cycle(env.now())
	remaining, err := quotaRemaining(env, doc.LineageID, cycle)
	if err != nil {
		return nil, err
	}
	decision := editcost.Evaluate(doc.Fields, input.NewValues, remaining, env.Cfg.EditFeeCents)

	if len(decision.ChangedKeys) == 0 {
		return &ApplyEditOutput{Decision: decision, Document: doc}, nil
	}

	// Assemble before committing anything: a value that cannot be formatted
	// fails the edit with no charge and no record.
	desc, err := env.descriptor(doc.TemplateID)
	if err != nil {
		return nil, err
	}
	output, err := assemble.Assemble(desc, input.NewValues, nil)
	if err != nil {
		return nil, err
	}
	outputRef, err := env.Blobs.Put(output)
	if err != nil {
		return nil, err
	}

	editID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.now().Unix()

	record := &document.EditRecord{
		ID:          editID,
		DocumentID:  doc.ID,
		LineageID:   doc.LineageID,
		ChangedKeys: decision.ChangedKeys,
		PriorFields: doc.Fields,
		QuotaBefore: decision.QuotaBefore,
		FeeCents:    decision.FeeCents,
		Kind:        document.EditKindEdit,
		Cycle:       cycle,
		CreatedAt:   now,
	}

	tx, err := env.DB.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var result *document.Instance
	if decision.Fork {
		forkID, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		fork := &document.Instance{
			ID:          forkID,
			LineageID:   doc.LineageID,
			TemplateID:  doc.TemplateID,
			Fields:      input.NewValues,
			Status:      document.StatusCompleted,
			OutputRef:   outputRef,
			GeneratedAt: now,
			Current:     true,
		}
		if err := db.InsertDocument(tx, fork); err != nil {
			return nil, err
		}
		if err := db.SupersedeDocument(tx, doc.ID, forkID); err != nil {
			return nil, err
		}
		record.ResultingDocumentID = forkID
		result = fork
	} else {
		if err := db.UpdateDocumentFields(tx, doc.ID, input.NewValues, outputRef, now); err != nil {
			return nil, err
		}
		record.ResultingDocumentID = doc.ID
		result = &document.Instance{
			ID:          doc.ID,
			LineageID:   doc.LineageID,
			TemplateID:  doc.TemplateID,
			Fields:      input.NewValues,
			Status:      document.StatusCompleted,
			OutputRef:   outputRef,
			GeneratedAt: now,
			Current:     true,
		}
	}

	if err := db.InsertEditRecord(tx, record); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	env.logger().Info("edit applied",
		"document", doc.ID, "lineage", doc.LineageID,
		"changed", len(decision.ChangedKeys), "fee_cents", decision.FeeCents,
		"fork", decision.Fork)

	if decision.FeeCents > 0 {
		env.Billing.EditCharged(ctx, billing.Event{
			LineageID:  doc.LineageID,
			DocumentID: result.ID,
			FeeCents:   decision.FeeCents,
			Cycle:      cycle,
		})
	}

	return &ApplyEditOutput{Decision: decision, Document: result, EditID: editID}, nil
}
