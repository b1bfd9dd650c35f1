package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"stencil/internal/db"
	"stencil/internal/document"
	"stencil/internal/errors"
)

// linesPerPage is how many text lines fit a US-Letter page at the export
// font size.
const linesPerPage = 54

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	DocumentID string
	// OutPath overrides the default exports/<id>.pdf location.
	OutPath string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Pages      int    `json:"pages"`
}

// Export renders a completed document's output as a paginated PDF under the
// exports directory. The PDF is a rendition for delivery; the stored
// document bytes remain the canonical output.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	doc, err := db.GetDocument(env.DB, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != document.StatusCompleted {
		return nil, errors.NewConflict("document is not completed")
	}

	content, err := env.Blobs.Get(doc.OutputRef)
	if err != nil {
		return nil, err
	}

	outPath := input.OutPath
	if outPath == "" {
		outPath = filepath.Join(env.BaseDir, "exports", doc.ID+".pdf")
	}

	spec, pages := buildCreateSpec(string(content))
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o700); err != nil {
		return nil, errors.NewInternal(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), "export-*.json")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(specJSON); err != nil {
		tmp.Close()
		return nil, errors.NewInternal(err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.CreateFile("", tmpPath, outPath, conf); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := api.ValidateFile(outPath, conf); err != nil {
		return nil, errors.NewInternal(err)
	}

	env.logger().Info("document exported",
		"document", doc.ID, "path", outPath, "pages", pages)

	return &ExportOutput{DocumentID: doc.ID, Path: outPath, Pages: pages}, nil
}

// createSpec is the page description handed to the PDF engine.
type createSpec struct {
	Pages map[string]createPage `json:"pages"`
}

type createPage struct {
	Content createContent `json:"content"`
}

type createContent struct {
	Text []textBox `json:"text"`
}

type textBox struct {
	Value  string   `json:"value"`
	Anchor string   `json:"anchor"`
	Dx     int      `json:"dx"`
	Dy     int      `json:"dy"`
	Font   specFont `json:"font"`
}

type specFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// buildCreateSpec paginates content into a create spec, one text box per
// page. Returns the spec and the page count.
func buildCreateSpec(content string) (*createSpec, int) {
	lines := strings.Split(content, "\n")

	spec := &createSpec{Pages: map[string]createPage{}}
	page := 0
	// strings.Split never returns an empty slice, so at least one page is
	// always emitted.
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.Join(lines[start:end], "\n")
		page++
		spec.Pages[strconv.Itoa(page)] = createPage{
			Content: createContent{
				Text: []textBox{{
					Value:  chunk,
					Anchor: "tl",
					Dx:     36,
					Dy:     36,
					Font:   specFont{Name: "Courier", Size: 10},
				}},
			},
		}
	}
	return spec, page
}
