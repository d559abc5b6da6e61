// Package render turns validated document maps into office files. Each
// renderer composes deterministic French markdown for its document type and
// hands the file to pandoc for docx or pptx conversion. Markdown sources are
// removed after a successful conversion unless the configuration keeps them.
package render
