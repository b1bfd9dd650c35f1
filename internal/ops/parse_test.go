package ops

import (
	"context"
	"testing"

	"stencil/internal/db"
	"stencil/internal/errors"
	"stencil/internal/field"
)

func TestParseTemplate_HappyPath(t *testing.T) {
	env := newTestEnv(t)

	out, err := ParseTemplate(context.Background(), env, ParseTemplateInput{
		Name:   "offer-letter",
		Format: "text",
		Body:   "Dear {APPLICANT_NAME},\nYour start date is {start_date|January 2, 2006}.",
	})
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}

	if out.Template.ID == "" {
		t.Error("template id not assigned")
	}
	if out.Template.PlaceholderCount != 2 {
		t.Errorf("placeholder count = %d, want 2", out.Template.PlaceholderCount)
	}
	if len(out.Placeholders) != 2 {
		t.Fatalf("got %d placeholders, want 2", len(out.Placeholders))
	}
	if out.Placeholders[0].CanonicalKey != "name" {
		t.Errorf("canonical key = %q, want name", out.Placeholders[0].CanonicalKey)
	}
	if out.Placeholders[0].Rule.Case != field.CaseUpper {
		t.Errorf("case = %q, want upper", out.Placeholders[0].Rule.Case)
	}
	if out.Placeholders[1].Kind != field.KindDate {
		t.Errorf("kind = %q, want date", out.Placeholders[1].Kind)
	}

	// Persisted and readable back.
	stored, err := db.GetTemplate(env.DB, out.Template.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if stored.Body == "" || stored.ContentHash != out.Template.ContentHash {
		t.Errorf("stored template incomplete: %+v", stored)
	}
}

func TestParseTemplate_IdempotentSameContent(t *testing.T) {
	env := newTestEnv(t)

	id1 := mustParse(t, env, "letter", letterTemplate)
	id2 := mustParse(t, env, "letter", letterTemplate)
	if id1 != id2 {
		t.Errorf("re-registering same content returned new id: %q vs %q", id1, id2)
	}
}

func TestParseTemplate_ReuploadSupersedes(t *testing.T) {
	env := newTestEnv(t)

	id := mustParse(t, env, "letter", "Hello {name}")
	out, err := ParseTemplate(context.Background(), env, ParseTemplateInput{
		Name: "letter", Format: "text", Body: "Goodbye {name}, until {date}",
	})
	if err != nil {
		t.Fatalf("re-upload failed: %v", err)
	}
	if out.Template.ID != id {
		t.Errorf("re-upload changed id: %q vs %q", out.Template.ID, id)
	}
	if out.Template.PlaceholderCount != 2 {
		t.Errorf("placeholder count = %d, want 2", out.Template.PlaceholderCount)
	}

	stored, err := db.GetTemplate(env.DB, id)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if stored.ContentHash != out.Template.ContentHash || stored.PlaceholderCount != 2 {
		t.Errorf("stored template not superseded: %+v", stored)
	}
}

func TestParseTemplate_UnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)

	_, err := ParseTemplate(context.Background(), env, ParseTemplateInput{
		Name: "x", Format: "docx", Body: "Hello {name}",
	})
	if !errors.Is(err, errors.ErrUnsupportedFormat) {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %v", err)
	}
}

func TestParseTemplate_Validation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := ParseTemplate(context.Background(), env, ParseTemplateInput{Format: "text", Body: "x"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing name: expected INVALID_REQUEST, got %v", err)
	}
	if _, err := ParseTemplate(context.Background(), env, ParseTemplateInput{Name: "x", Format: "text"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing body: expected INVALID_REQUEST, got %v", err)
	}
}

func TestParseTemplate_CorruptBody(t *testing.T) {
	env := newTestEnv(t)

	_, err := ParseTemplate(context.Background(), env, ParseTemplateInput{
		Name: "bad", Format: "text", Body: "hello\x00world",
	})
	if !errors.Is(err, errors.ErrCorruptDocument) {
		t.Errorf("expected CORRUPT_DOCUMENT, got %v", err)
	}
}

func TestParseTemplate_DefaultsToText(t *testing.T) {
	env := newTestEnv(t)

	out, err := ParseTemplate(context.Background(), env, ParseTemplateInput{
		Name: "plain", Body: "Hello {name}",
	})
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	if out.Template.Format != "text" {
		t.Errorf("format = %q, want text", out.Template.Format)
	}
}
