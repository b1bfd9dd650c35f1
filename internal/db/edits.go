package db

import (
	"database/sql"
	"encoding/json"

	"stencil/internal/document"
	"stencil/internal/errors"
)

// InsertEditRecord appends one immutable ledger entry.
func InsertEditRecord(q DBTX, r *document.EditRecord) error {
	keysJSON, err := json.Marshal(r.ChangedKeys)
	if err != nil {
		return errors.NewInternal(err)
	}
	priorJSON, err := json.Marshal(r.PriorFields)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO edit_records (
			id, document_id, lineage_id, changed_keys_json, prior_fields_json,
			quota_before, fee_cents, resulting_document_id, kind, cycle, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.Exec(query,
		r.ID, r.DocumentID, r.LineageID, string(keysJSON), string(priorJSON),
		r.QuotaBefore, r.FeeCents, toNullString(optional(r.ResultingDocumentID)),
		string(r.Kind), r.Cycle, r.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// ListEditRecords returns a lineage's ledger entries in creation order.
func ListEditRecords(q DBTX, lineageID string) ([]*document.EditRecord, error) {
	rows, err := q.Query(editSelect+`
		WHERE lineage_id = ? ORDER BY created_at, id
	`, lineageID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return collectEditRecords(rows)
}

// FreeChangesUsed counts the canonical keys consumed by free in-place edits
// on a lineage within a billing cycle. Paid edits and refunds never touch
// the quota.
func FreeChangesUsed(q DBTX, lineageID, cycle string) (int, error) {
	rows, err := q.Query(`
		SELECT changed_keys_json FROM edit_records
		WHERE lineage_id = ? AND cycle = ? AND kind = ? AND fee_cents = 0
	`, lineageID, cycle, string(document.EditKindEdit))
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer rows.Close()

	used := 0
	for rows.Next() {
		var keysJSON string
		if err := rows.Scan(&keysJSON); err != nil {
			return 0, errors.NewInternal(err)
		}
		var keys []string
		if err := json.Unmarshal([]byte(keysJSON), &keys); err != nil {
			return 0, errors.NewInternal(err)
		}
		used += len(keys)
	}
	if err := rows.Err(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return used, nil
}

// LastEditForDocument returns the most recent edit entry that produced the
// given instance, if any.
func LastEditForDocument(q DBTX, documentID string) (*document.EditRecord, error) {
	row := q.QueryRow(editSelect+`
		WHERE resulting_document_id = ? AND kind = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, documentID, string(document.EditKindEdit))
	r, err := scanEditRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(documentID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

const editSelect = `
	SELECT id, document_id, lineage_id, changed_keys_json, prior_fields_json,
		quota_before, fee_cents, resulting_document_id, kind, cycle, created_at
	FROM edit_records`

func collectEditRecords(rows *sql.Rows) ([]*document.EditRecord, error) {
	var records []*document.EditRecord
	for rows.Next() {
		r, err := scanEditRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

func scanEditRecord(row scanner) (*document.EditRecord, error) {
	r := &document.EditRecord{}
	var keysJSON, priorJSON, kind string
	var resulting sql.NullString

	err := row.Scan(
		&r.ID, &r.DocumentID, &r.LineageID, &keysJSON, &priorJSON, &r.QuotaBefore,
		&r.FeeCents, &resulting, &kind, &r.Cycle, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(keysJSON), &r.ChangedKeys); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(priorJSON), &r.PriorFields); err != nil {
		return nil, err
	}
	r.ResultingDocumentID = resulting.String
	r.Kind = document.EditKind(kind)
	return r, nil
}
