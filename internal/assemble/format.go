package assemble

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stencil/internal/errors"
	"stencil/internal/field"
)

// DefaultDateLayout is the output layout for date fields without a pattern.
const DefaultDateLayout = "2006-01-02"

// dateInputLayouts are the accepted layouts for supplied date values, tried
// in order.
var dateInputLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	time.RFC3339,
}

// applyCase force-transforms a value per the format rule. The rule always
// wins over the caller's literal input casing.
func applyCase(c field.Case, s string) string {
	switch c {
	case field.CaseUpper:
		return strings.ToUpper(s)
	case field.CaseLower:
		return strings.ToLower(s)
	case field.CaseTitle:
		return cases.Title(language.Und).String(strings.ToLower(s))
	default:
		return s
	}
}

// formatDate parses a supplied date value and renders it with the spec's
// pattern (a Go time layout) or the default layout.
func formatDate(spec *field.PlaceholderSpec, value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, in := range dateInputLayouts {
		parsed, err := time.Parse(in, value)
		if err != nil {
			continue
		}
		out := spec.Rule.Pattern
		if out == "" {
			out = DefaultDateLayout
		}
		return parsed.Format(out), nil
	}
	return "", errors.NewFieldFormat(spec.CanonicalKey, fmt.Sprintf("unrecognized date %q", value))
}

// formatNumeric parses a supplied numeric value and renders it with digit
// grouping. Currency always carries two decimals; plain numbers keep their
// integral form when whole.
func formatNumeric(spec *field.PlaceholderSpec, value string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "", errors.NewFieldFormat(spec.CanonicalKey, fmt.Sprintf("not a number: %q", value))
	}

	if spec.Kind == field.KindCurrency {
		return groupDigits(fmt.Sprintf("%.2f", n)), nil
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return groupDigits(strconv.FormatInt(int64(n), 10)), nil
	}
	return groupDigits(strconv.FormatFloat(n, 'f', -1, 64)), nil
}

// matchChoice validates a value against the spec's option list,
// case-insensitively, and returns the canonical option spelling.
func matchChoice(spec *field.PlaceholderSpec, value string) (string, error) {
	want := strings.TrimSpace(value)
	options := strings.Split(spec.Rule.Pattern, ",")
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if strings.EqualFold(opt, want) {
			return opt, nil
		}
	}
	return "", errors.NewFieldFormat(spec.CanonicalKey,
		fmt.Sprintf("%q is not one of: %s", value, spec.Rule.Pattern))
}

// groupDigits inserts comma thousands separators into the integer part of a
// formatted number, preserving sign and decimals.
func groupDigits(s string) string {
	if strings.HasPrefix(s, "-") {
		return "-" + groupDigits(s[1:])
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) > 3 {
		var sb strings.Builder
		remainder := len(intPart) % 3
		if remainder > 0 {
			sb.WriteString(intPart[:remainder])
		}
		for i := remainder; i < len(intPart); i += 3 {
			if sb.Len() > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(intPart[i : i+3])
		}
		intPart = sb.String()
	}
	if hasFrac {
		return intPart + "." + frac
	}
	return intPart
}
