package types

import (
	"errors"
	"fmt"
)

// ResourceKind classifies what a Resource stands for
type ResourceKind string

const (
	ResourceImport     ResourceKind = "import"
	ResourceCallTarget ResourceKind = "call_target"
	ResourceAttribute  ResourceKind = "attribute"
)

// Resource represents an external name a Symbol depends on that is not
// itself a Symbol in the current file. Deduplicated by (Name, Kind) within
// one extraction run.
type Resource struct {
	ID   string
	Name string
	Kind ResourceKind
}

// ResourceID builds the canonical resource identifier.
func ResourceID(kind ResourceKind, name string) string {
	return fmt.Sprintf("%s:%s", kind, name)
}

// ValidateKind checks if the resource kind is valid
func (r *Resource) ValidateKind() error {
	switch r.Kind {
	case ResourceImport, ResourceCallTarget, ResourceAttribute:
		return nil
	default:
		return errors.New("invalid resource kind")
	}
}

// Relation classifies a dependency edge
type Relation string

const (
	RelationUses    Relation = "uses"
	RelationCalls   Relation = "calls"
	RelationImports Relation = "imports"
)

// Edge is a directed dependency from a Symbol to either another Symbol or a
// Resource. Cycles are permitted; traversal code must use a visited set.
type Edge struct {
	SourceID string // Always a Symbol ID from the same indexing run
	TargetID string // Symbol or Resource ID
	Relation Relation
}

// Validate checks the edge fields
func (e *Edge) Validate() error {
	if e.SourceID == "" {
		return errors.New("edge source is required")
	}
	if e.TargetID == "" {
		return errors.New("edge target is required")
	}
	switch e.Relation {
	case RelationUses, RelationCalls, RelationImports:
		return nil
	default:
		return errors.New("invalid edge relation")
	}
}
