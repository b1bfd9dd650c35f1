// Package extract parses raw template bytes into a reusable descriptor,
// detecting delimiter-bounded placeholders with their position and style
// metadata.
package extract

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"stencil/internal/errors"
	"stencil/internal/field"
)

// Supported template formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// tokenRegex matches a placeholder: {name}, {name?}, {name|annotation}.
// The optional marker makes a field non-required; the annotation carries a
// kind-specific pattern, a WxH bounding box, or a choice option list.
var tokenRegex = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9 _.\-]*?)(\?)?(?:\|([^{}|]*))?\}`)

// boxRegex matches a WxH bounding box annotation.
var boxRegex = regexp.MustCompile(`^(\d+)x(\d+)$`)

// region is a run of scannable text with the style in effect there.
type region struct {
	start, stop int
	style       field.Style
}

// span is one placeholder occurrence located in the source.
type span struct {
	start, end int
	name       string
	optional   bool
	annotation string
	style      field.Style
}

// Extract parses raw template bytes in the given format into a descriptor.
// The caller stamps TemplateID and ContentHash. Fails with UnsupportedFormat
// for an unrecognized format and CorruptDocument when the container cannot
// be opened.
func Extract(raw []byte, format string, classifier *field.Classifier) (*field.TemplateDescriptor, error) {
	if err := checkContainer(raw); err != nil {
		return nil, err
	}

	var regions []region
	switch format {
	case FormatText:
		regions = []region{{start: 0, stop: len(raw)}}
	case FormatMarkdown:
		regions = markdownRegions(raw)
	default:
		return nil, errors.NewUnsupportedFormat(format)
	}

	spans := scanRegions(raw, regions)
	return buildDescriptor(raw, format, spans, classifier), nil
}

// checkContainer rejects input that cannot be opened as a text document.
func checkContainer(raw []byte) error {
	if len(raw) == 0 {
		return errors.NewCorruptDocument("empty input")
	}
	if !utf8.Valid(raw) {
		return errors.NewCorruptDocument("invalid UTF-8")
	}
	if bytes.IndexByte(raw, 0x00) >= 0 {
		return errors.NewCorruptDocument("binary content")
	}
	return nil
}

// scanRegions finds placeholder occurrences within each region, recording
// absolute offsets and the region's style.
func scanRegions(raw []byte, regions []region) []span {
	var spans []span
	for _, r := range regions {
		if r.start >= r.stop {
			continue
		}
		text := string(raw[r.start:r.stop])
		for _, m := range tokenRegex.FindAllStringSubmatchIndex(text, -1) {
			s := span{
				start: r.start + m[0],
				end:   r.start + m[1],
				name:  text[m[2]:m[3]],
				style: r.style,
			}
			if m[4] >= 0 {
				s.optional = true
			}
			if m[6] >= 0 {
				s.annotation = text[m[6]:m[7]]
			}
			spans = append(spans, s)
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

// buildDescriptor collapses occurrences of the same token into one
// PlaceholderSpec (first-seen style and annotation win) and cuts the source
// into literal and placeholder segments.
func buildDescriptor(raw []byte, format string, spans []span, classifier *field.Classifier) *field.TemplateDescriptor {
	d := &field.TemplateDescriptor{Format: format}
	byName := make(map[string]int)

	for _, s := range spans {
		if _, seen := byName[s.name]; !seen {
			spec := specFromSpan(s)
			classifier.Classify(spec)
			// A comma-separated annotation on an otherwise plain text field
			// declares a choice; on dates and numbers it stays a pattern.
			if spec.Kind == field.KindText && strings.Contains(spec.Rule.Pattern, ",") {
				spec.Kind = field.KindChoice
			}
			byName[s.name] = len(d.Placeholders)
			d.Placeholders = append(d.Placeholders, spec)
		}
	}

	cursor := 0
	for _, s := range spans {
		if s.start > cursor {
			d.Segments = append(d.Segments, field.Segment{
				Literal:     string(raw[cursor:s.start]),
				Placeholder: -1,
			})
		}
		idx := byName[s.name]
		segIdx := len(d.Segments)
		d.Segments = append(d.Segments, field.Segment{Placeholder: idx})
		d.Placeholders[idx].Positions = append(d.Placeholders[idx].Positions, segIdx)
		cursor = s.end
	}
	if cursor < len(raw) {
		d.Segments = append(d.Segments, field.Segment{
			Literal:     string(raw[cursor:]),
			Placeholder: -1,
		})
	}

	return d
}

// specFromSpan creates the placeholder spec for a first-seen token,
// interpreting its annotation.
func specFromSpan(s span) *field.PlaceholderSpec {
	spec := &field.PlaceholderSpec{
		Name:     s.name,
		Required: !s.optional,
		Style:    s.style,
	}

	ann := strings.TrimSpace(s.annotation)
	switch {
	case ann == "":
	case boxRegex.MatchString(ann):
		m := boxRegex.FindStringSubmatch(ann)
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		spec.Box = &field.Box{W: w, H: h}
	default:
		spec.Rule.Pattern = ann
	}

	return spec
}
