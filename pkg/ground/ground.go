// Package ground defines the grounding capability used to resolve free-text
// clinical concepts to canonical ontology identifiers, together with the
// client for a remote grounding service and an offline MeSH term lookup.
package ground

import "context"

// Candidate is one possible resolution of a free-text term. Candidates are
// ordered by match quality; index 0 is the best match.
type Candidate struct {
	Namespace string
	ID        string
	// Name is the canonical entry term of the matched concept.
	Name  string
	Score float64
}

// Grounder resolves free text to zero or more candidate concepts.
//
// Implementations must be deterministic for a fixed knowledge base so that
// repeated runs produce identical graphs. Ambiguous text (for example a
// combined drug name) may legitimately return several candidates.
type Grounder interface {
	Ground(ctx context.Context, text string, namespaces []string, contextText string) ([]Candidate, error)
}

// Preprocessor rewrites entity text before it is sent to the grounder.
// Registries attach their own cleanup rules through this hook.
type Preprocessor func(text string) string

// NoopPreprocessor returns the text unchanged.
func NoopPreprocessor(text string) string { return text }

// ConditionNamespaces are the ontologies considered when grounding
// condition terms.
var ConditionNamespaces = []string{"MESH", "doid", "mondo", "go"}

// InterventionNamespaces are the ontologies considered when grounding
// intervention terms.
var InterventionNamespaces = []string{"CHEBI", "MESH"}
