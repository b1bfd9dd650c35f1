package consolidate

import (
	"testing"

	"stencil/internal/errors"
	"stencil/internal/extract"
	"stencil/internal/field"
)

func parse(t *testing.T, id, src string) *field.TemplateDescriptor {
	t.Helper()
	d, err := extract.Extract([]byte(src), extract.FormatText, field.NewClassifier(nil))
	if err != nil {
		t.Fatalf("Extract(%s) failed: %v", id, err)
	}
	d.TemplateID = id
	return d
}

func TestConsolidate_MergesEquivalentNames(t *testing.T) {
	descriptors := []*field.TemplateDescriptor{
		parse(t, "offer", "Dear {applicant_name}, salary {salary}.\n"),
		parse(t, "contract", "Between us and {customer_name}, dated {contract_date}.\n"),
		parse(t, "badge", "{name}\n"),
	}

	unified, err := Consolidate(descriptors)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	// applicant_name, customer_name, and name all merge into one field.
	if len(unified) != 3 {
		t.Fatalf("got %d unified fields, want 3 (name, salary, contract_date)", len(unified))
	}

	name := unified[0]
	if name.CanonicalKey != "name" {
		t.Fatalf("first field = %q, want most-shared field %q first", name.CanonicalKey, "name")
	}
	if len(name.Sources) != 3 {
		t.Errorf("name sources = %v, want all 3 templates", name.Sources)
	}
	if name.SourceMap["offer"].Name != "applicant_name" {
		t.Errorf("offer source spec = %q, want applicant_name", name.SourceMap["offer"].Name)
	}
	if name.SourceMap["badge"].Name != "name" {
		t.Errorf("badge source spec = %q, want name", name.SourceMap["badge"].Name)
	}
}

func TestConsolidate_CoverageComplete(t *testing.T) {
	descriptors := []*field.TemplateDescriptor{
		parse(t, "a", "{name} {address} {salary}\n"),
		parse(t, "b", "{full_name} {start_date}\n"),
	}

	unified, err := Consolidate(descriptors)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	// Every placeholder in every descriptor must be reachable through some
	// unified field's source map.
	for _, d := range descriptors {
		for _, spec := range d.Placeholders {
			found := false
			for _, u := range unified {
				if u.SourceMap[d.TemplateID] != nil && u.SourceMap[d.TemplateID].CanonicalKey == spec.CanonicalKey {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("placeholder %q of template %q left unmapped", spec.Name, d.TemplateID)
			}
		}
	}
}

func TestConsolidate_TieBrokenByFirstAppearance(t *testing.T) {
	descriptors := []*field.TemplateDescriptor{
		parse(t, "a", "{address} then {phone_number}\n"),
	}

	unified, err := Consolidate(descriptors)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	if unified[0].CanonicalKey != "address" || unified[1].CanonicalKey != "phone" {
		t.Errorf("order = [%s %s], want first-appearance order on equal share",
			unified[0].CanonicalKey, unified[1].CanonicalKey)
	}
}

func TestConsolidate_RequiredAggregatesWithOr(t *testing.T) {
	descriptors := []*field.TemplateDescriptor{
		parse(t, "a", "{nickname?}\n"),
		parse(t, "b", "{nickname}\n"),
	}

	unified, err := Consolidate(descriptors)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if !unified[0].Required {
		t.Error("field required in any source must be required in the unified set")
	}
}

func TestConsolidate_NumberCurrencyCompatible(t *testing.T) {
	descriptors := []*field.TemplateDescriptor{
		parse(t, "a", "{fee}\n"),        // currency
		parse(t, "b", "{fee_value}\n"),  // canonicalizes to fee, currency
	}

	unified, err := Consolidate(descriptors)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if len(unified) != 1 {
		t.Fatalf("got %d fields, want 1", len(unified))
	}
	if unified[0].Kind != field.KindCurrency {
		t.Errorf("Kind = %s, want currency", unified[0].Kind)
	}
}

func TestConsolidate_IncompatibleKinds(t *testing.T) {
	// One template declares delivery_method as plain text, the other as a
	// choice; the same canonical key cannot merge across those kinds.
	a := parse(t, "a", "{delivery_method}\n")
	b := parse(t, "b", "{delivery_method|courier,pickup}\n")

	_, err := Consolidate([]*field.TemplateDescriptor{a, b})
	if !errors.Is(err, errors.ErrIncompatibleFieldKinds) {
		t.Errorf("err = %v, want INCOMPATIBLE_FIELD_KINDS", err)
	}
}

func TestConsolidate_ReducesInputSurface(t *testing.T) {
	descriptors := []*field.TemplateDescriptor{
		parse(t, "a", "{applicant_name} {dob} {address}\n"),
		parse(t, "b", "{full_name} {birth_date} {home_address}\n"),
		parse(t, "c", "{name} {date_of_birth}\n"),
	}

	unified, err := Consolidate(descriptors)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	total := 0
	for _, d := range descriptors {
		total += len(d.Placeholders)
	}
	if len(unified) >= total {
		t.Errorf("unified %d fields from %d placeholders, want a reduction", len(unified), total)
	}
	if len(unified) != 3 {
		t.Errorf("got %d unified fields, want 3 (name, date_of_birth, address)", len(unified))
	}
}
