package field

import (
	"strings"
	"unicode"
)

// Classifier assigns kind, canonical key, and format rule to extracted
// placeholders. The synonym table is immutable after construction.
type Classifier struct {
	synonyms map[string]string
}

// NewClassifier creates a Classifier. Entries in extra overlay the built-in
// synonym table.
func NewClassifier(extra map[string]string) *Classifier {
	synonyms := make(map[string]string, len(defaultSynonyms)+len(extra))
	for k, v := range defaultSynonyms {
		synonyms[k] = v
	}
	for k, v := range extra {
		synonyms[normalizeName(k)] = normalizeName(v)
	}
	return &Classifier{synonyms: synonyms}
}

// kindRule pairs name stems with the kind they imply. Rules apply in order;
// first match wins.
type kindRule struct {
	kind  Kind
	stems []string
}

var kindRules = []kindRule{
	{KindDate, []string{"date", "dob", "expiry", "expires", "deadline", "birthday", "issued", "valid_until"}},
	{KindCurrency, []string{"amount", "price", "salary", "fee", "cost", "total", "balance", "rent", "wage"}},
	{KindNumber, []string{"number", "count", "quantity", "qty", "age", "year", "score"}},
	{KindSignature, []string{"signature", "sign"}},
	{KindImage, []string{"photo", "image", "logo", "picture", "avatar", "stamp"}},
}

// Classify fills in Kind, CanonicalKey, and the inferred case rule for a
// placeholder extracted from source. Fields already set by the extractor
// (an annotated kind, an explicit case) are kept. Kind rules run on the
// canonical stem so role qualifiers and synonyms never sway them:
// "phone_number" reduces to "phone" and stays text.
func (c *Classifier) Classify(spec *PlaceholderSpec) *PlaceholderSpec {
	spec.CanonicalKey = c.CanonicalKey(spec.Name, spec.Kind)
	if spec.Kind == "" {
		spec.Kind = classifyKind(spec.CanonicalKey)
	}
	if spec.Rule.Case == "" {
		spec.Rule.Case = inferCase(spec.Name)
	}
	return spec
}

// CanonicalKey derives the normalized semantic identity for a raw token
// name. Deterministic in (name, kind).
func (c *Classifier) CanonicalKey(name string, _ Kind) string {
	return canonicalize(name, c.synonyms)
}

// classifyKind applies the ordered stem rules to a canonical key; default
// is text.
func classifyKind(key string) Kind {
	parts := strings.Split(key, "_")
	for _, rule := range kindRules {
		for _, stem := range rule.stems {
			if key == stem || hasPart(parts, stem) || strings.Contains(key, stem) {
				return rule.kind
			}
		}
	}
	return KindText
}

func hasPart(parts []string, stem string) bool {
	for _, p := range parts {
		if p == stem {
			return true
		}
	}
	return false
}

// inferCase infers the output case transform from the literal casing of the
// raw token: ALL CAPS means upper, Capitalized Words means title, anything
// else is left untransformed.
func inferCase(name string) Case {
	hasLetter := false
	allUpper := true
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				allUpper = false
			}
		}
	}
	if !hasLetter {
		return CaseNone
	}
	if allUpper {
		return CaseUpper
	}
	if isTitleCased(name) {
		return CaseTitle
	}
	return CaseNone
}

// isTitleCased reports whether every word in the token starts with an upper
// case letter and contains at least one lower case letter overall.
func isTitleCased(name string) bool {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		first, _ := firstLetter(w)
		if first == 0 || !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

func firstLetter(s string) (rune, bool) {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return r, true
		}
	}
	return 0, false
}
