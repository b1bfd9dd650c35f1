package assemble

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"stencil/internal/errors"
	"stencil/internal/extract"
	"stencil/internal/field"
)

// renderAsset resolves an image or signature value (an asset path), decodes
// it, fits it into the placeholder's recorded bounding box, and emits a
// content-addressed reference. Fails FieldFormatError when the asset cannot
// be decoded.
func renderAsset(format string, spec *field.PlaceholderSpec, value string, opts *Options) (string, error) {
	raw, err := opts.loadAsset(value)
	if err != nil {
		return "", errors.NewFieldFormat(spec.CanonicalKey, fmt.Sprintf("cannot read asset %q: %v", value, err))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", errors.NewFieldFormat(spec.CanonicalKey, fmt.Sprintf("cannot decode asset %q: %v", value, err))
	}

	w, h := fitBox(cfg.Width, cfg.Height, spec.Box)
	sum := sha256.Sum256(raw)
	ref := hex.EncodeToString(sum[:])[:16]

	if format == extract.FormatMarkdown {
		return fmt.Sprintf("![%s](asset:%s?w=%d&h=%d)", spec.Name, ref, w, h), nil
	}
	return fmt.Sprintf("[%s asset:%s %dx%d]", spec.Name, ref, w, h), nil
}

// fitBox scales source dimensions into a bounding box while preserving
// aspect ratio. Without a recorded box the source dimensions pass through.
func fitBox(srcW, srcH int, box *field.Box) (int, int) {
	if box == nil || box.W <= 0 || box.H <= 0 || srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}
	if srcW <= box.W && srcH <= box.H {
		return srcW, srcH
	}

	scaleW := float64(box.W) / float64(srcW)
	scaleH := float64(box.H) / float64(srcH)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
