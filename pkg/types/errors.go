package types

import "errors"

// Domain errors shared across the indexing core
var (
	// ErrUnsupportedLanguage is returned when no grammar is registered for a
	// file's language. Fatal for that file, non-fatal for an indexing run.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
