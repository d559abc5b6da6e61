// Package importer extracts plain text and candidate documents from files
// supplied for fromA/fromB runs.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"prositor/internal/jsonextract"
	"prositor/internal/services"
)

// TextExtractor converts a stored file to plain text. The pandoc client
// satisfies this for DOCX input.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Extraction reports the plain text pulled from an uploaded file.
type Extraction struct {
	Text     string
	JSONLike bool
}

// Importer turns uploaded or local files into text suitable for injection.
type Importer struct {
	extractor TextExtractor
}

// New builds an importer. The extractor handles DOCX input and is required.
func New(extractor TextExtractor) (*Importer, error) {
	if extractor == nil {
		return nil, services.Wrap(services.ErrConfiguration, "import", "new", "text extractor required", nil)
	}
	return &Importer{extractor: extractor}, nil
}

// FromFile extracts text from a file on disk. DOCX files go through pandoc
// directly; text formats are read as-is.
func (i *Importer) FromFile(ctx context.Context, path string) (Extraction, error) {
	switch kind(path) {
	case kindDocx:
		text, err := i.extractor.ExtractText(ctx, path)
		if err != nil {
			return Extraction{}, services.Wrap(services.ErrExternalTool, "import", "extract", fmt.Sprintf("extract text from %s", filepath.Base(path)), err)
		}
		return textExtraction(text), nil
	case kindText:
		data, err := os.ReadFile(path)
		if err != nil {
			return Extraction{}, services.Wrap(services.ErrValidation, "import", "extract", fmt.Sprintf("read %s", filepath.Base(path)), err)
		}
		return plainText(data, path)
	default:
		return Extraction{}, unsupported(path)
	}
}

// FromBytes extracts text from an uploaded file's bytes, using the original
// filename to pick the extraction strategy. DOCX bytes are staged to a
// temporary file for pandoc and removed afterwards.
func (i *Importer) FromBytes(ctx context.Context, data []byte, filename string) (Extraction, error) {
	switch kind(filename) {
	case kindDocx:
		staged, err := os.CreateTemp("", "prositor-import-*.docx")
		if err != nil {
			return Extraction{}, services.Wrap(services.ErrTransient, "import", "extract", "stage upload", err)
		}
		stagedPath := staged.Name()
		defer os.Remove(stagedPath)
		if _, err := staged.Write(data); err != nil {
			staged.Close()
			return Extraction{}, services.Wrap(services.ErrTransient, "import", "extract", "stage upload", err)
		}
		if err := staged.Close(); err != nil {
			return Extraction{}, services.Wrap(services.ErrTransient, "import", "extract", "stage upload", err)
		}
		text, err := i.extractor.ExtractText(ctx, stagedPath)
		if err != nil {
			return Extraction{}, services.Wrap(services.ErrExternalTool, "import", "extract", fmt.Sprintf("extract text from %s", filepath.Base(filename)), err)
		}
		return textExtraction(text), nil
	case kindText:
		return plainText(data, filename)
	default:
		return Extraction{}, unsupported(filename)
	}
}

// Document parses JSON-like extracted text into a document map for injection.
func Document(text string) (map[string]any, error) {
	return jsonextract.ExtractObject(text)
}

type fileKind int

const (
	kindUnsupported fileKind = iota
	kindText
	kindDocx
)

func kind(filename string) fileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return kindDocx
	case ".json", ".md", ".txt":
		return kindText
	default:
		return kindUnsupported
	}
}

func plainText(data []byte, filename string) (Extraction, error) {
	if bytes.ContainsRune(data, 0) || !utf8.Valid(data) {
		return Extraction{}, services.Wrap(services.ErrValidation, "import", "extract", fmt.Sprintf("%s is not UTF-8 text", filepath.Base(filename)), nil)
	}
	return textExtraction(string(data)), nil
}

func textExtraction(text string) Extraction {
	return Extraction{Text: text, JSONLike: looksLikeJSON(text)}
}

// looksLikeJSON reports whether the text leads with a JSON object, bare or
// fenced. Prose that merely mentions JSON somewhere does not qualify.
func looksLikeJSON(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "```") {
		return false
	}
	_, err := jsonextract.ExtractObject(trimmed)
	return err == nil
}

func unsupported(filename string) error {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = filepath.Base(filename)
	}
	return services.Wrap(services.ErrValidation, "import", "extract", fmt.Sprintf("unsupported file type %q", ext), nil)
}
