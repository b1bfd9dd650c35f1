package db

import (
	"database/sql"
	"encoding/json"

	"stencil/internal/document"
	"stencil/internal/errors"
)

// InsertDocument stores a new document instance.
func InsertDocument(q DBTX, d *document.Instance) error {
	fieldsJSON, err := json.Marshal(d.Fields)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO documents (
			id, lineage_id, template_id, fields_json, status,
			output_ref, failure_code, generated_at, current, superseded_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.Exec(query,
		d.ID, d.LineageID, d.TemplateID, string(fieldsJSON), string(d.Status),
		toNullString(optional(d.OutputRef)), toNullString(optional(d.FailureCode)),
		d.GeneratedAt, boolToInt(d.Current), toNullString(d.SupersededBy),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetDocument retrieves a document instance by ID.
func GetDocument(q DBTX, id string) (*document.Instance, error) {
	row := q.QueryRow(documentSelect+" WHERE id = ?", id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// GetCurrentInLineage returns the current (non-superseded) instance of a
// lineage.
func GetCurrentInLineage(q DBTX, lineageID string) (*document.Instance, error) {
	row := q.QueryRow(documentSelect+`
		WHERE lineage_id = ? AND current = 1
		ORDER BY generated_at DESC LIMIT 1
	`, lineageID)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(lineageID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// ListLineage returns every instance of a lineage in generation order.
func ListLineage(q DBTX, lineageID string) ([]*document.Instance, error) {
	rows, err := q.Query(documentSelect+`
		WHERE lineage_id = ? ORDER BY generated_at, id
	`, lineageID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var instances []*document.Instance
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		instances = append(instances, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if len(instances) == 0 {
		return nil, errors.NewNotFound(lineageID)
	}
	return instances, nil
}

// CompleteDocument moves a draft to completed and records its output ref.
func CompleteDocument(q DBTX, id, outputRef string) error {
	return updateStatus(q, id, document.StatusCompleted, outputRef, "")
}

// FailDocument moves a draft to failed and records the error code.
func FailDocument(q DBTX, id, failureCode string) error {
	return updateStatus(q, id, document.StatusFailed, "", failureCode)
}

func updateStatus(q DBTX, id string, status document.Status, outputRef, failureCode string) error {
	res, err := q.Exec(`
		UPDATE documents SET status = ?, output_ref = ?, failure_code = ?
		WHERE id = ?
	`, string(status), toNullString(optional(outputRef)), toNullString(optional(failureCode)), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// UpdateDocumentFields rewrites the field snapshot and output of an
// instance after a free in-place edit.
func UpdateDocumentFields(q DBTX, id string, fields map[string]string, outputRef string, generatedAt int64) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return errors.NewInternal(err)
	}
	res, err := q.Exec(`
		UPDATE documents SET fields_json = ?, output_ref = ?, generated_at = ?
		WHERE id = ?
	`, string(fieldsJSON), outputRef, generatedAt, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// SupersedeDocument marks an instance replaced by a fork.
func SupersedeDocument(q DBTX, id, byID string) error {
	res, err := q.Exec(`
		UPDATE documents SET current = 0, superseded_by = ?
		WHERE id = ?
	`, byID, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// UnsupersedeDocument makes a previously superseded instance current again,
// used when a fork is reverted.
func UnsupersedeDocument(q DBTX, id string) error {
	res, err := q.Exec(`
		UPDATE documents SET current = 1, superseded_by = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// RetireDocument removes an instance from the current set without naming a
// successor, used on the fork side of a revert.
func RetireDocument(q DBTX, id string) error {
	res, err := q.Exec(`
		UPDATE documents SET current = 0, superseded_by = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

const documentSelect = `
	SELECT id, lineage_id, template_id, fields_json, status,
		output_ref, failure_code, generated_at, current, superseded_by
	FROM documents`

func scanDocument(row scanner) (*document.Instance, error) {
	d := &document.Instance{}
	var fieldsJSON string
	var status string
	var outputRef, failureCode, supersededBy sql.NullString
	var current int

	err := row.Scan(
		&d.ID, &d.LineageID, &d.TemplateID, &fieldsJSON, &status,
		&outputRef, &failureCode, &d.GeneratedAt, &current, &supersededBy,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &d.Fields); err != nil {
		return nil, err
	}
	d.Status = document.Status(status)
	d.OutputRef = outputRef.String
	d.FailureCode = failureCode.String
	d.Current = current != 0
	d.SupersededBy = fromNullString(supersededBy)
	return d, nil
}

// toNullString converts *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
