package types

import "errors"

// RecordMetadata carries the symbol location data persisted alongside a
// vector so query results can be enriched without re-reading source files.
type RecordMetadata struct {
	FilePath  string
	Kind      string
	StartLine int
	EndLine   int
}

// EmbeddingRecord is one persisted vector per indexed Symbol. Vector length
// must match the dimensionality of the table it is written to.
type EmbeddingRecord struct {
	SymbolID   string
	Vector     []float32
	SourceText string
	Metadata   RecordMetadata
}

// Validate performs basic validation of the record
func (r *EmbeddingRecord) Validate() error {
	if r.SymbolID == "" {
		return errors.New("symbol ID is required")
	}
	if len(r.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if r.Metadata.FilePath == "" {
		return errors.New("file path metadata is required")
	}
	if r.Metadata.StartLine <= 0 || r.Metadata.EndLine < r.Metadata.StartLine {
		return errors.New("invalid metadata line span")
	}
	return nil
}
