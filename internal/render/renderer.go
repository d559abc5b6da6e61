package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prositor/internal/config"
	"prositor/internal/document"
	"prositor/internal/pipeline"
	"prositor/internal/services"
	"prositor/internal/services/pandoc"
)

// Renderer produces the office file for one document type.
type Renderer struct {
	docType      document.Type
	converter    pandoc.Converter
	referenceDoc string
	keepMarkdown bool
}

// Option configures a renderer.
type Option func(*Renderer)

// WithReferenceDoc sets the pandoc reference document used for styling.
func WithReferenceDoc(path string) Option {
	return func(r *Renderer) {
		r.referenceDoc = strings.TrimSpace(path)
	}
}

// WithKeepMarkdown leaves the composed markdown source next to the output.
func WithKeepMarkdown(keep bool) Option {
	return func(r *Renderer) {
		r.keepMarkdown = keep
	}
}

// New constructs a renderer for the given document type.
func New(docType document.Type, converter pandoc.Converter, opts ...Option) (*Renderer, error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("unknown document type %q", docType)
	}
	if converter == nil {
		return nil, fmt.Errorf("converter required")
	}
	renderer := &Renderer{docType: docType, converter: converter}
	for _, opt := range opts {
		opt(renderer)
	}
	return renderer, nil
}

// NewFromConfig builds a renderer wired with the configured reference
// document for the type's output format.
func NewFromConfig(docType document.Type, converter pandoc.Converter, cfg config.Render) (*Renderer, error) {
	reference := cfg.ReferenceDocx
	if docType.Extension() == pandoc.FormatPptx {
		reference = cfg.ReferencePptx
	}
	return New(docType, converter,
		WithReferenceDoc(reference),
		WithKeepMarkdown(cfg.KeepMarkdown),
	)
}

// Render writes the markdown source and converts it under outputDir. It
// returns the path of the produced office file.
func (r *Renderer) Render(ctx context.Context, doc map[string]any, identity pipeline.Identity, outputDir string) (string, error) {
	if strings.TrimSpace(outputDir) == "" {
		return "", services.Wrap(services.ErrRender, string(r.docType), "render", "output directory required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrRender, string(r.docType), "render", "create output directory", err)
	}

	outputPath := document.OutputPath(outputDir, r.docType, identity.Slug)
	markdownPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".md"
	source := Markdown(r.docType, doc, identity)
	if err := os.WriteFile(markdownPath, []byte(source), 0o644); err != nil {
		return "", services.Wrap(services.ErrRender, string(r.docType), "render", "write markdown source", err)
	}

	metadata := map[string]string{
		"title": r.docType.Title(),
		"lang":  "fr-FR",
	}
	if identity.Student != "" {
		metadata["author"] = identity.Student
	}
	req := pandoc.ConvertRequest{
		InputPath:    markdownPath,
		OutputPath:   outputPath,
		Format:       r.docType.Extension(),
		ReferenceDoc: r.referenceDoc,
		Metadata:     metadata,
	}
	if err := r.converter.Convert(ctx, req); err != nil {
		// The markdown source stays behind for diagnosis on failure.
		return "", services.Wrap(services.ErrRender, string(r.docType), "render", "pandoc conversion", err)
	}

	if !r.keepMarkdown {
		if err := os.Remove(markdownPath); err != nil && !os.IsNotExist(err) {
			return "", services.Wrap(services.ErrRender, string(r.docType), "render", "remove markdown source", err)
		}
	}
	return outputPath, nil
}
