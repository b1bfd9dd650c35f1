// Package document defines the persistent model: stored templates,
// generated document instances, and the edit ledger.
package document

import "time"

// Status tracks a document instance through generation.
type Status string

const (
	// StatusDraft is the initial row written before assembly is dispatched.
	StatusDraft Status = "draft"
	// StatusCompleted means assembly succeeded and output bytes are stored.
	StatusCompleted Status = "completed"
	// StatusFailed means assembly failed; the error is recorded on the row.
	StatusFailed Status = "failed"
)

// Template is a stored template with its raw body and parse summary.
type Template struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Format           string `json:"format"`
	ContentHash      string `json:"content_hash"`
	Body             string `json:"-"`
	PlaceholderCount int    `json:"placeholder_count"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

// Instance is one generated document. Instances in the same lineage share a
// LineageID: an in-place edit rewrites the current instance, a paid edit
// forks a new one and marks the old instance superseded.
type Instance struct {
	ID         string            `json:"id"`
	LineageID  string            `json:"lineage_id"`
	TemplateID string            `json:"template_id"`
	// Fields is the complete snapshot of canonical key to raw value the
	// instance was assembled from.
	Fields      map[string]string `json:"fields"`
	Status      Status            `json:"status"`
	// OutputRef addresses the rendered bytes in the blob store; empty until
	// the instance completes.
	OutputRef    string  `json:"output_ref,omitempty"`
	FailureCode  string  `json:"failure_code,omitempty"`
	GeneratedAt  int64   `json:"generated_at"`
	Current      bool    `json:"current"`
	SupersededBy *string `json:"superseded_by,omitempty"`
}

// EditKind distinguishes ledger entries.
type EditKind string

const (
	EditKindEdit   EditKind = "edit"
	EditKindRefund EditKind = "refund"
)

// EditRecord is one immutable ledger entry for an edit or a refund.
type EditRecord struct {
	ID          string   `json:"id"`
	DocumentID  string   `json:"document_id"`
	LineageID   string   `json:"lineage_id"`
	ChangedKeys []string `json:"changed_keys"`
	// PriorFields is the complete snapshot before the edit, kept so a
	// revert can restore it exactly.
	PriorFields map[string]string `json:"prior_fields"`
	// QuotaBefore is the free-change allowance that remained in the cycle
	// before this edit was applied.
	QuotaBefore int      `json:"quota_before"`
	FeeCents    int      `json:"fee_cents"`
	// ResultingDocumentID is the instance the edit produced: the same
	// document for an in-place edit, the fork for a paid one.
	ResultingDocumentID string   `json:"resulting_document_id,omitempty"`
	Kind                EditKind `json:"kind"`
	Cycle               string   `json:"cycle"`
	CreatedAt           int64    `json:"created_at"`
}

// Cycle returns the billing cycle label for t, e.g. "2026-08". Cycles are
// calendar months in UTC so the boundary does not move with server locale.
func Cycle(t time.Time) string {
	return t.UTC().Format("2006-01")
}
