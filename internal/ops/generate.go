package ops

import (
	"context"

	"stencil/internal/assemble"
	"stencil/internal/batch"
	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/errors"
	"stencil/internal/field"
)

// GenerateRequest is one document to produce: a template plus the values
// for its unified fields.
type GenerateRequest struct {
	TemplateID string
	Values     map[string]string
}

// GenerateBatchInput contains parameters for the GenerateBatch operation.
type GenerateBatchInput struct {
	Requests []GenerateRequest
}

// GenerateResult is the outcome of one request, in submission order.
type GenerateResult struct {
	DocumentID   string          `json:"document_id,omitempty"`
	LineageID    string          `json:"lineage_id,omitempty"`
	Status       document.Status `json:"status"`
	OutputRef    string          `json:"output_ref,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// GenerateBatchOutput contains per-request results and aggregate counts.
type GenerateBatchOutput struct {
	Results   []GenerateResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// GenerateBatch assembles one document per request. Requests are isolated:
// a failing request records its error and never affects the rest of the
// batch. Each successful document starts a fresh lineage with its complete
// value snapshot persisted.
func GenerateBatch(ctx context.Context, env *Env, input GenerateBatchInput) (*GenerateBatchOutput, error) {
	if len(input.Requests) == 0 {
		return nil, errors.NewInvalidRequest("requests must not be empty")
	}

	n := len(input.Requests)
	results := make([]GenerateResult, n)
	descriptors := make(map[string]*field.TemplateDescriptor, n)
	drafts := make([]*document.Instance, n)
	now := env.now().Unix()

	// Resolve descriptors and write draft rows up front so every dispatched
	// job is visible in the store before assembly begins. Requests that
	// cannot be resolved fail here without consuming a scheduler slot.
	jobs := make([]batch.Job, 0, n)
	jobSlot := make([]int, 0, n)
	for i, req := range input.Requests {
		d, err := env.descriptor(req.TemplateID)
		if err != nil {
			results[i] = failedResult(err)
			continue
		}

		docID, err := generateULID()
		if err != nil {
			results[i] = failedResult(errors.NewInternal(err))
			continue
		}
		lineageID, err := generateULID()
		if err != nil {
			results[i] = failedResult(errors.NewInternal(err))
			continue
		}

		draft := &document.Instance{
			ID:          docID,
			LineageID:   lineageID,
			TemplateID:  req.TemplateID,
			Fields:      req.Values,
			Status:      document.StatusDraft,
			GeneratedAt: now,
			Current:     true,
		}
		if err := db.InsertDocument(env.DB, draft); err != nil {
			results[i] = failedResult(err)
			continue
		}

		descriptors[docID] = d
		drafts[i] = draft
		jobs = append(jobs, batch.Job{
			TemplateID: req.TemplateID,
			Values:     req.Values,
			Complexity: d.PlaceholderCount(),
			Ref:        docID,
		})
		jobSlot = append(jobSlot, i)
	}

	b := env.Scheduler.NewBatch(jobs)
	outcomes := env.Scheduler.Run(ctx, b, func(_ context.Context, j batch.Job) ([]byte, error) {
		return assemble.Assemble(descriptors[j.Ref], j.Values, nil)
	})

	out := &GenerateBatchOutput{Results: results}
	for k, o := range outcomes {
		i := jobSlot[k]
		draft := drafts[i]

		if o.Err != nil {
			if dbErr := db.FailDocument(env.DB, draft.ID, errorCode(o.Err)); dbErr != nil {
				env.logger().Error("failed to record document failure",
					"document", draft.ID, "error", dbErr)
			}
			results[i] = failedResult(o.Err)
			results[i].DocumentID = draft.ID
			results[i].LineageID = draft.LineageID
			continue
		}

		ref, err := env.Blobs.Put(o.Output)
		if err == nil {
			err = db.CompleteDocument(env.DB, draft.ID, ref)
		}
		if err != nil {
			if dbErr := db.FailDocument(env.DB, draft.ID, errorCode(err)); dbErr != nil {
				env.logger().Error("failed to record document failure",
					"document", draft.ID, "error", dbErr)
			}
			results[i] = failedResult(err)
			results[i].DocumentID = draft.ID
			results[i].LineageID = draft.LineageID
			continue
		}

		results[i] = GenerateResult{
			DocumentID: draft.ID,
			LineageID:  draft.LineageID,
			Status:     document.StatusCompleted,
			OutputRef:  ref,
		}
	}

	for _, r := range results {
		if r.Status == document.StatusCompleted {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

func failedResult(err error) GenerateResult {
	return GenerateResult{
		Status:       document.StatusFailed,
		ErrorCode:    errorCode(err),
		ErrorMessage: err.Error(),
	}
}
