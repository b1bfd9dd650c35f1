package ops

import (
	"context"

	"stencil/internal/assemble"
	"stencil/internal/billing"
	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/errors"
)

// RevertEditInput contains parameters for the RevertEdit operation.
type RevertEditInput struct {
	DocumentID string
}

// RevertEditOutput contains the result of the RevertEdit operation.
type RevertEditOutput struct {
	// Document is the current instance after the revert, carrying the
	// restored snapshot.
	Document *document.Instance `json:"document"`
	// RefundedCents is the fee returned when a paid edit is reverted.
	// Free quota consumed by the original edit is not restored.
	RefundedCents int `json:"refunded_cents"`
}

// RevertEdit undoes the most recent edit that produced the given instance,
// restoring the prior field snapshot exactly. Reverting a paid fork refunds
// the fee and makes the original instance current again.
func RevertEdit(ctx context.Context, env *Env, input RevertEditInput) (*RevertEditOutput, error) {
	doc, err := db.GetDocument(env.DB, input.DocumentID)
	if err != nil {
		return nil, err
	}

	unlock := env.Locks.Lock(doc.LineageID)
	defer unlock()

	doc, err = editableInstance(env, input.DocumentID)
	if err != nil {
		return nil, err
	}

	record, err := db.LastEditForDocument(env.DB, doc.ID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewConflict("document has no edit to revert")
		}
		return nil, err
	}

	refundID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := env.now().Unix()
	cycle := document.Cycle(env.now())

	refund := &document.EditRecord{
		ID:          refundID,
		DocumentID:  doc.ID,
		LineageID:   doc.LineageID,
		ChangedKeys: record.ChangedKeys,
		PriorFields: doc.Fields,
		FeeCents:    record.FeeCents,
		Kind:        document.EditKindRefund,
		Cycle:       cycle,
		CreatedAt:   now,
	}

	tx, err := env.DB.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var result *document.Instance
	if record.FeeCents > 0 {
		// The edit forked: retire the fork and restore the original
		// instance, whose snapshot and output are still intact.
		original, err := db.GetDocument(tx, record.DocumentID)
		if err != nil {
			return nil, err
		}
		if err := db.RetireDocument(tx, doc.ID); err != nil {
			return nil, err
		}
		if err := db.UnsupersedeDocument(tx, original.ID); err != nil {
			return nil, err
		}
		refund.ResultingDocumentID = original.ID
		original.Current = true
		original.SupersededBy = nil
		result = original
	} else {
		// In-place edit: reassemble the prior snapshot and rewrite.
		desc, err := env.descriptor(doc.TemplateID)
		if err != nil {
			return nil, err
		}
		output, err := assemble.Assemble(desc, record.PriorFields, nil)
		if err != nil {
			return nil, err
		}
		outputRef, err := env.Blobs.Put(output)
		if err != nil {
			return nil, err
		}
		if err := db.UpdateDocumentFields(tx, doc.ID, record.PriorFields, outputRef, now); err != nil {
			return nil, err
		}
		refund.ResultingDocumentID = doc.ID
		result = &document.Instance{
			ID:          doc.ID,
			LineageID:   doc.LineageID,
			TemplateID:  doc.TemplateID,
			Fields:      record.PriorFields,
			Status:      document.StatusCompleted,
			OutputRef:   outputRef,
			GeneratedAt: now,
			Current:     true,
		}
	}

	if err := db.InsertEditRecord(tx, refund); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	env.logger().Info("edit reverted",
		"document", doc.ID, "lineage", doc.LineageID,
		"refunded_cents", record.FeeCents)

	if record.FeeCents > 0 {
		env.Billing.FeeRefunded(ctx, billing.Event{
			LineageID:  doc.LineageID,
			DocumentID: doc.ID,
			FeeCents:   record.FeeCents,
			Cycle:      cycle,
		})
	}

	return &RevertEditOutput{Document: result, RefundedCents: record.FeeCents}, nil
}
