package field

// Kind classifies the value a placeholder accepts.
type Kind string

const (
	KindText      Kind = "text"
	KindDate      Kind = "date"
	KindNumber    Kind = "number"
	KindCurrency  Kind = "currency"
	KindSignature Kind = "signature"
	KindImage     Kind = "image"
	KindChoice    Kind = "choice"
)

// CompatibleWith reports whether two kinds may merge into one unified field.
// Numeric and currency are compatible with each other; nothing else is.
func (k Kind) CompatibleWith(other Kind) bool {
	if k == other {
		return true
	}
	numeric := func(x Kind) bool { return x == KindNumber || x == KindCurrency }
	return numeric(k) && numeric(other)
}

// Case is the case transform applied to a substituted value.
type Case string

const (
	CaseNone  Case = "none"
	CaseUpper Case = "upper"
	CaseTitle Case = "title"
	CaseLower Case = "lower"
)

// FormatRule describes how a value is rendered at substitution time.
type FormatRule struct {
	Case Case `json:"case"`
	// Pattern is a kind-specific output pattern: a Go time layout for dates,
	// a comma-separated option list for choice fields.
	Pattern string `json:"pattern,omitempty"`
}

// Box is the bounding box recorded for image and signature placeholders,
// in display units.
type Box struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Style captures the source styling in effect at a placeholder's first
// occurrence.
type Style struct {
	Bold         bool `json:"bold,omitempty"`
	Italic       bool `json:"italic,omitempty"`
	HeadingLevel int  `json:"heading_level,omitempty"`
}

// PlaceholderSpec is one detected field in a template. Multiple occurrences
// of the same token collapse to one spec; first-seen style wins and every
// occurrence is substituted with the styling-normalized value.
type PlaceholderSpec struct {
	// Name is the raw token as found in source, e.g. "applicant_name".
	Name string `json:"name"`
	// CanonicalKey is the normalized semantic identity, e.g. "name".
	// Derived deterministically from Name and Kind.
	CanonicalKey string     `json:"canonical_key"`
	Kind         Kind       `json:"kind"`
	Rule         FormatRule `json:"format_rule"`
	Required     bool       `json:"required"`
	Box          *Box       `json:"box,omitempty"`
	Style        Style      `json:"style,omitempty"`

	// Positions are opaque location tokens (segment indexes) owned by the
	// assembler. The consolidator never inspects them.
	Positions []int `json:"-"`
}

// Segment is one run of the template's raw structure: either a literal byte
// run or a reference to a placeholder. Owned exclusively by the assembler.
type Segment struct {
	// Literal holds the verbatim source run when Placeholder < 0.
	Literal string
	// Placeholder indexes into TemplateDescriptor.Placeholders, or -1.
	Placeholder int
}

// TemplateDescriptor is the parsed, cacheable representation of one template
// version. Immutable once created.
type TemplateDescriptor struct {
	TemplateID   string             `json:"template_id"`
	ContentHash  string             `json:"content_hash"`
	Format       string             `json:"format"`
	Placeholders []*PlaceholderSpec `json:"placeholders"`

	// Segments is the raw structure consumed by the assembler. Never copied
	// into unified fields or persisted records.
	Segments []Segment `json:"-"`
}

// PlaceholderCount returns the number of distinct placeholders, used as the
// batch scheduler's complexity measure.
func (d *TemplateDescriptor) PlaceholderCount() int {
	return len(d.Placeholders)
}

// Lookup returns the spec with the given canonical key, or nil.
func (d *TemplateDescriptor) Lookup(canonicalKey string) *PlaceholderSpec {
	for _, p := range d.Placeholders {
		if p.CanonicalKey == canonicalKey {
			return p
		}
	}
	return nil
}

// UnifiedField is one entry of the minimal input surface produced for a
// batch request. Created per request and discarded after assembly.
type UnifiedField struct {
	CanonicalKey string `json:"canonical_key"`
	Kind         Kind   `json:"kind"`
	// Required is true if the field is required in any source template.
	Required bool `json:"required"`
	// Sources lists contributing template ids in first-appearance order.
	Sources []string `json:"sources"`
	// SourceMap maps template id to the spec that field value must satisfy,
	// retaining each template's own formatting rule for output.
	SourceMap map[string]*PlaceholderSpec `json:"-"`
}
