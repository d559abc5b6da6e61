// Package document defines the three PROSIT document types, their rendered
// file naming, and helpers for working with the loosely typed JSON maps the
// generation stages produce.
package document

import (
	"fmt"
	"path/filepath"
)

// Type identifies one of the three generated documents.
type Type string

const (
	// Aller is the "Prosit Aller" preparation document (DOCX).
	Aller Type = "aller"
	// Retour is the "Prosit Retour" restitution deck (PPTX).
	Retour Type = "retour"
	// CER is the study report "Compte d'Étude et de Recherche" (DOCX).
	CER Type = "cer"
)

// Types returns the document types in pipeline order.
func Types() []Type {
	return []Type{Aller, Retour, CER}
}

// Valid reports whether t names a known document type.
func (t Type) Valid() bool {
	switch t {
	case Aller, Retour, CER:
		return true
	}
	return false
}

// Order returns the 1-based pipeline position used as the filename prefix.
func (t Type) Order() int {
	switch t {
	case Aller:
		return 1
	case Retour:
		return 2
	case CER:
		return 3
	}
	return 0
}

// Label returns the filename label for the type.
func (t Type) Label() string {
	switch t {
	case Aller:
		return "Prosit_Aller"
	case Retour:
		return "Prosit_Retour"
	case CER:
		return "CER"
	}
	return string(t)
}

// Title returns the human-readable document title used in rendered metadata.
func (t Type) Title() string {
	switch t {
	case Aller:
		return "Prosit Aller"
	case Retour:
		return "Prosit Retour"
	case CER:
		return "Compte d'Étude et de Recherche"
	}
	return string(t)
}

// Extension returns the rendered file extension without the leading dot.
func (t Type) Extension() string {
	if t == Retour {
		return "pptx"
	}
	return "docx"
}

// Filename builds the deterministic rendered filename for the type and slug.
func Filename(t Type, slug string) string {
	return fmt.Sprintf("%d_%s_%s.%s", t.Order(), t.Label(), slug, t.Extension())
}

// OutputPath joins the run output directory with the deterministic filename.
func OutputPath(dir string, t Type, slug string) string {
	return filepath.Join(dir, Filename(t, slug))
}
