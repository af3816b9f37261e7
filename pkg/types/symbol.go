package types

import (
	"errors"
	"fmt"
)

// SymbolKind represents the syntactic category of an extracted definition
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindClass    SymbolKind = "class"
	KindVariable SymbolKind = "variable"
)

// Symbol represents a code definition extracted from a single source file.
// Symbols are immutable once emitted; identity is (FilePath, Name, StartLine).
type Symbol struct {
	// Identification
	ID   string
	Name string
	Kind SymbolKind

	// Location (1-based, inclusive)
	FilePath  string
	StartLine int
	EndLine   int

	// Content
	Signature string // Declaration line(s) only, body excluded
	Docstring string // Optional

	// EnclosingID is the ID of the nearest ancestor definition, empty for
	// top-level symbols. Weak reference: the enclosing symbol may be absent
	// from a filtered symbol set.
	EnclosingID string
}

// SymbolID builds the canonical symbol identifier from its identity triple.
func SymbolID(filePath, name string, startLine int) string {
	return fmt.Sprintf("%s:%s:%d", filePath, name, startLine)
}

// ValidateKind checks if the symbol kind is valid
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindFunction, KindMethod, KindClass, KindVariable:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// Validate performs comprehensive validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if err := s.ValidateKind(); err != nil {
		return err
	}

	if s.FilePath == "" {
		return errors.New("file path is required")
	}

	if s.StartLine <= 0 || s.EndLine <= 0 {
		return errors.New("invalid position: line numbers must be positive")
	}

	if s.StartLine > s.EndLine {
		return errors.New("invalid position: start line must be before or equal to end line")
	}

	if s.ID != SymbolID(s.FilePath, s.Name, s.StartLine) {
		return errors.New("symbol ID does not match identity triple")
	}

	return nil
}
