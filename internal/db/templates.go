package db

import (
	"database/sql"
	"strings"

	"stencil/internal/document"
	"stencil/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.Error{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// InsertTemplate stores a new template.
func InsertTemplate(q DBTX, t *document.Template) error {
	query := `
		INSERT INTO templates (
			id, name, format, content_hash, body,
			placeholder_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.Exec(query,
		t.ID, t.Name, t.Format, t.ContentHash, t.Body,
		t.PlaceholderCount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateTemplate replaces a template's content in place, keeping its id.
func UpdateTemplate(q DBTX, t *document.Template) error {
	res, err := q.Exec(`
		UPDATE templates
		SET format = ?, content_hash = ?, body = ?, placeholder_count = ?, updated_at = ?
		WHERE id = ?
	`, t.Format, t.ContentHash, t.Body, t.PlaceholderCount, t.UpdatedAt, t.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(t.ID)
	}
	return nil
}

// GetTemplate retrieves a template by ID.
func GetTemplate(q DBTX, id string) (*document.Template, error) {
	row := q.QueryRow(`
		SELECT id, name, format, content_hash, body,
			placeholder_count, created_at, updated_at
		FROM templates WHERE id = ?
	`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// GetTemplateByName retrieves a template by its unique name.
func GetTemplateByName(q DBTX, name string) (*document.Template, error) {
	row := q.QueryRow(`
		SELECT id, name, format, content_hash, body,
			placeholder_count, created_at, updated_at
		FROM templates WHERE name = ?
	`, name)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// ListTemplates returns all templates, newest first.
func ListTemplates(q DBTX) ([]*document.Template, error) {
	rows, err := q.Query(`
		SELECT id, name, format, content_hash, body,
			placeholder_count, created_at, updated_at
		FROM templates ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var templates []*document.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return templates, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*document.Template, error) {
	t := &document.Template{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Format, &t.ContentHash, &t.Body,
		&t.PlaceholderCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
