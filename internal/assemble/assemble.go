// Package assemble produces final document bytes from a template descriptor
// and resolved field values. Assembly is pure given (descriptor, values,
// asset bytes): identical inputs always produce byte-identical output.
package assemble

import (
	"os"
	"strings"

	"stencil/internal/errors"
	"stencil/internal/field"
)

// Options tunes assembly. The zero value is usable.
type Options struct {
	// LoadAsset resolves an image or signature field value (an asset path)
	// to raw bytes. Defaults to os.ReadFile. Assembly never performs
	// network calls.
	LoadAsset func(path string) ([]byte, error)
}

func (o *Options) loadAsset(path string) ([]byte, error) {
	if o != nil && o.LoadAsset != nil {
		return o.LoadAsset(path)
	}
	return os.ReadFile(path)
}

// Assemble walks the descriptor's segments, substituting a styling-normalized
// value at every recorded occurrence and preserving all non-placeholder
// content verbatim. The document is built fully in memory and returned only
// on complete success.
func Assemble(d *field.TemplateDescriptor, values map[string]string, opts *Options) ([]byte, error) {
	rendered := make(map[int]string, len(d.Placeholders))
	for idx, spec := range d.Placeholders {
		value, ok := values[spec.CanonicalKey]
		if !ok {
			if spec.Required {
				return nil, errors.NewMissingRequiredField(spec.CanonicalKey)
			}
			rendered[idx] = ""
			continue
		}

		out, err := renderValue(d.Format, spec, value, opts)
		if err != nil {
			return nil, err
		}
		rendered[idx] = out
	}

	var sb strings.Builder
	for _, seg := range d.Segments {
		if seg.Placeholder < 0 {
			sb.WriteString(seg.Literal)
		} else {
			sb.WriteString(rendered[seg.Placeholder])
		}
	}
	return []byte(sb.String()), nil
}

// renderValue applies the spec's format rule to one value.
func renderValue(format string, spec *field.PlaceholderSpec, value string, opts *Options) (string, error) {
	switch spec.Kind {
	case field.KindDate:
		formatted, err := formatDate(spec, value)
		if err != nil {
			return "", err
		}
		return applyCase(spec.Rule.Case, formatted), nil
	case field.KindNumber, field.KindCurrency:
		return formatNumeric(spec, value)
	case field.KindChoice:
		chosen, err := matchChoice(spec, value)
		if err != nil {
			return "", err
		}
		return applyCase(spec.Rule.Case, chosen), nil
	case field.KindImage, field.KindSignature:
		return renderAsset(format, spec, value, opts)
	default:
		return applyCase(spec.Rule.Case, value), nil
	}
}
