package field

import (
	"regexp"
	"strings"
)

// separatorRegex matches runs of whitespace, hyphens, and dots.
var separatorRegex = regexp.MustCompile(`[\s\-.]+`)

// underscoreRegex collapses repeated underscores.
var underscoreRegex = regexp.MustCompile(`_+`)

// qualifierPrefixes are role qualifiers stripped from the front of a name
// before synonym lookup. "applicant_name" and "customer_name" both reduce
// to "name".
var qualifierPrefixes = []string{
	"applicant_", "customer_", "client_", "employee_", "employer_",
	"recipient_", "sender_", "user_", "owner_", "full_", "your_", "my_",
}

// qualifierSuffixes are form-artifact suffixes stripped from the end.
var qualifierSuffixes = []string{
	"_field", "_value", "_input", "_here",
}

// defaultSynonyms maps stripped name stems to canonical keys. Config-provided
// entries overlay this table at Classifier construction.
var defaultSynonyms = map[string]string{
	"dob":           "date_of_birth",
	"birth_date":    "date_of_birth",
	"birthdate":     "date_of_birth",
	"birthday":      "date_of_birth",
	"surname":       "last_name",
	"family_name":   "last_name",
	"forename":      "first_name",
	"given_name":    "first_name",
	"phone_number":  "phone",
	"telephone":     "phone",
	"mobile":        "phone",
	"mobile_number": "phone",
	"email_address": "email",
	"e_mail":        "email",
	"home_address":  "address",
	"street_address": "address",
	"company":       "company_name",
	"organisation":  "company_name",
	"organization":  "company_name",
	"sign":          "signature",
	"photo":         "photo",
	"picture":       "photo",
	"avatar":        "photo",
	"salary_amount": "salary",
	"price_amount":  "price",
	"total_amount":  "amount",
}

// normalizeName lowercases a raw token and collapses separators to single
// underscores.
func normalizeName(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = separatorRegex.ReplaceAllString(s, "_")
	s = underscoreRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// stripQualifiers removes role-qualifier prefixes and form-artifact suffixes.
// Stripping repeats while it makes progress but never reduces the name to
// nothing.
func stripQualifiers(name string) string {
	for {
		stripped := name
		for _, p := range qualifierPrefixes {
			if rest, ok := strings.CutPrefix(stripped, p); ok && rest != "" {
				stripped = rest
				break
			}
		}
		for _, s := range qualifierSuffixes {
			if rest, ok := strings.CutSuffix(stripped, s); ok && rest != "" {
				stripped = rest
				break
			}
		}
		if stripped == name {
			return name
		}
		name = stripped
	}
}

// canonicalize derives the canonical key for a raw token name using the
// given synonym table. Unmapped names canonicalize to themselves.
func canonicalize(name string, synonyms map[string]string) string {
	key := stripQualifiers(normalizeName(name))
	if key == "" {
		return normalizeName(name)
	}
	if mapped, ok := synonyms[key]; ok {
		return mapped
	}
	return key
}
