package assemble

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stencil/internal/errors"
	"stencil/internal/extract"
	"stencil/internal/field"
)

func parse(t *testing.T, format, src string) *field.TemplateDescriptor {
	t.Helper()
	d, err := extract.Extract([]byte(src), format, field.NewClassifier(nil))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return d
}

func TestAssemble_CaseTransforms(t *testing.T) {
	// Three templates declare the same logical field with different literal
	// casing; one value renders per each template's own rule.
	tests := []struct {
		src  string
		want string
	}{
		{"X {APPLICANT_NAME} Y", "X JOHN DOE Y"},
		{"X {Customer_Name} Y", "X John Doe Y"},
		{"X {name} Y", "X john doe Y"},
	}

	for _, tt := range tests {
		d := parse(t, extract.FormatText, tt.src)
		out, err := Assemble(d, map[string]string{"name": "john doe"}, nil)
		if err != nil {
			t.Fatalf("Assemble(%q) failed: %v", tt.src, err)
		}
		if string(out) != tt.want {
			t.Errorf("Assemble(%q) = %q, want %q", tt.src, out, tt.want)
		}
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	d := parse(t, extract.FormatMarkdown, "# Offer\n\nDear **{name}**, salary {salary} from {start_date}.\n")
	values := map[string]string{
		"name":       "ada lovelace",
		"salary":     "1234567.5",
		"start_date": "2026-03-01",
	}

	first, err := Assemble(d, values, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	second, err := Assemble(d, values, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical inputs must produce byte-identical output")
	}
}

func TestAssemble_EveryOccurrenceSubstituted(t *testing.T) {
	d := parse(t, extract.FormatText, "{name} agrees. Signed, {name}.")
	out, err := Assemble(d, map[string]string{"name": "bob"}, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := string(out); got != "bob agrees. Signed, bob." {
		t.Errorf("out = %q", got)
	}
}

func TestAssemble_DateFormatting(t *testing.T) {
	tests := []struct {
		src   string
		value string
		want  string
	}{
		{"due {due_date}", "2026-03-01", "due 2026-03-01"},
		{"due {due_date|02 Jan 2006}", "2026-03-01", "due 01 Mar 2026"},
		{"due {due_date|January 2, 2006}", "01/03/2026", "due March 1, 2026"},
	}

	for _, tt := range tests {
		d := parse(t, extract.FormatText, tt.src)
		out, err := Assemble(d, map[string]string{"due_date": tt.value}, nil)
		if err != nil {
			t.Fatalf("Assemble(%q) failed: %v", tt.src, err)
		}
		if string(out) != tt.want {
			t.Errorf("Assemble(%q, %q) = %q, want %q", tt.src, tt.value, out, tt.want)
		}
	}
}

func TestAssemble_BadDate(t *testing.T) {
	d := parse(t, extract.FormatText, "due {due_date}")
	_, err := Assemble(d, map[string]string{"due_date": "soonish"}, nil)
	if !errors.Is(err, errors.ErrFieldFormat) {
		t.Errorf("err = %v, want FIELD_FORMAT_ERROR", err)
	}
}

func TestAssemble_NumericFormatting(t *testing.T) {
	tests := []struct {
		src   string
		key   string
		value string
		want  string
	}{
		{"total: {amount}", "amount", "1234567.5", "total: 1,234,567.50"}, // currency: two decimals
		{"n = {invoice_number}", "invoice_number", "98765", "n = 98,765"},
		{"age {age}", "age", "41", "age 41"},
	}

	for _, tt := range tests {
		d := parse(t, extract.FormatText, tt.src)
		out, err := Assemble(d, map[string]string{tt.key: tt.value}, nil)
		if err != nil {
			t.Fatalf("Assemble(%q) failed: %v", tt.src, err)
		}
		if string(out) != tt.want {
			t.Errorf("Assemble(%q, %q) = %q, want %q", tt.src, tt.value, out, tt.want)
		}
	}
}

func TestAssemble_BadNumber(t *testing.T) {
	d := parse(t, extract.FormatText, "total: {amount}")
	_, err := Assemble(d, map[string]string{"amount": "a lot"}, nil)
	if !errors.Is(err, errors.ErrFieldFormat) {
		t.Errorf("err = %v, want FIELD_FORMAT_ERROR", err)
	}
}

func TestAssemble_Choice(t *testing.T) {
	d := parse(t, extract.FormatText, "plan: {plan|basic,premium}")

	out, err := Assemble(d, map[string]string{"plan": "PREMIUM"}, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if string(out) != "plan: premium" {
		t.Errorf("out = %q, want canonical option spelling", out)
	}

	_, err = Assemble(d, map[string]string{"plan": "deluxe"}, nil)
	if !errors.Is(err, errors.ErrFieldFormat) {
		t.Errorf("err = %v, want FIELD_FORMAT_ERROR", err)
	}
}

func TestAssemble_MissingRequired(t *testing.T) {
	d := parse(t, extract.FormatText, "Dear {name},")
	_, err := Assemble(d, map[string]string{}, nil)
	if !errors.Is(err, errors.ErrMissingRequiredField) {
		t.Errorf("err = %v, want MISSING_REQUIRED_FIELD", err)
	}
}

func TestAssemble_OptionalOmitted(t *testing.T) {
	d := parse(t, extract.FormatText, "Hi {name}{nickname?}.")
	out, err := Assemble(d, map[string]string{"name": "ada"}, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if string(out) != "Hi ada." {
		t.Errorf("out = %q, want omitted optional substituted empty", out)
	}
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "asset.png")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestAssemble_ImageFit(t *testing.T) {
	asset := writeTestPNG(t, 400, 200)
	d := parse(t, extract.FormatMarkdown, "Photo: {photo|100x100}\n")

	out, err := Assemble(d, map[string]string{"photo": asset}, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	// 400x200 into 100x100 preserves the 2:1 aspect ratio.
	if !strings.Contains(string(out), "w=100&h=50") {
		t.Errorf("out = %q, want aspect-fit dimensions w=100&h=50", out)
	}
}

func TestAssemble_ImageSmallerThanBoxKeepsSize(t *testing.T) {
	asset := writeTestPNG(t, 40, 20)
	d := parse(t, extract.FormatText, "Photo: {photo|100x100}")

	out, err := Assemble(d, map[string]string{"photo": asset}, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !strings.Contains(string(out), "40x20") {
		t.Errorf("out = %q, want original 40x20 (never upscaled)", out)
	}
}

func TestAssemble_UndecodableAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := parse(t, extract.FormatText, "Photo: {photo}")
	_, err := Assemble(d, map[string]string{"photo": path}, nil)
	if !errors.Is(err, errors.ErrFieldFormat) {
		t.Errorf("err = %v, want FIELD_FORMAT_ERROR", err)
	}
}

func TestAssemble_PreservesNonPlaceholderContent(t *testing.T) {
	src := "# Head\n\n- item one\n- {name}\n\n```\ncode {name} block\n```\n"
	d := parse(t, extract.FormatMarkdown, src)

	out, err := Assemble(d, map[string]string{"name": "x"}, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "# Head") || !strings.Contains(got, "code {name} block") {
		t.Errorf("out = %q, want structure and code regions preserved verbatim", got)
	}
	if !strings.Contains(got, "- x\n") {
		t.Errorf("out = %q, want prose occurrence substituted", got)
	}
}
