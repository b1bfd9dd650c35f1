package ops

import (
	"context"

	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/editcost"
	"stencil/internal/errors"
)

// EvaluateEditInput contains parameters for the EvaluateEdit operation.
type EvaluateEditInput struct {
	DocumentID string
	NewValues  map[string]string
}

// EvaluateEditOutput is a dry-run quote: what an edit would change, what it
// would cost, and whether it would fork. Nothing is committed.
type EvaluateEditOutput struct {
	Decision       editcost.Decision `json:"decision"`
	QuotaRemaining int               `json:"quota_remaining"`
	Cycle          string            `json:"cycle"`
}

// EvaluateEdit prices an edit against the lineage's free quota for the
// current billing cycle without applying it.
func EvaluateEdit(ctx context.Context, env *Env, input EvaluateEditInput) (*EvaluateEditOutput, error) {
	doc, err := editableInstance(env, input.DocumentID)
	if err != nil {
		return nil, err
	}

	cycle := document.Cycle(env.now())
	remaining, err := quotaRemaining(env, doc.LineageID, cycle)
	if err != nil {
		return nil, err
	}

	decision := editcost.Evaluate(doc.Fields, input.NewValues, remaining, env.Cfg.EditFeeCents)
	return &EvaluateEditOutput{
		Decision:       decision,
		QuotaRemaining: remaining,
		Cycle:          cycle,
	}, nil
}

// editableInstance loads an instance and verifies it can accept edits: only
// the current, completed instance of a lineage is editable.
func editableInstance(env *Env, documentID string) (*document.Instance, error) {
	doc, err := db.GetDocument(env.DB, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Current {
		return nil, errors.NewConflict("document has been superseded; edit the current instance")
	}
	if doc.Status != document.StatusCompleted {
		return nil, errors.NewConflict("document is not completed")
	}
	return doc, nil
}

// quotaRemaining computes the free-change allowance left for a lineage in
// the given cycle.
func quotaRemaining(env *Env, lineageID, cycle string) (int, error) {
	used, err := db.FreeChangesUsed(env.DB, lineageID, cycle)
	if err != nil {
		return 0, err
	}
	remaining := env.Cfg.FreeEditQuota - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
