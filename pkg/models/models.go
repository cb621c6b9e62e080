// Package models defines the graph data model produced by a registry run:
// trial nodes, grounded bio-entity nodes, and the typed edges between them.
//
// Identity is defined solely by CURIEs. A node's curie only exists once its
// namespace and local id are known; for bio-entities that happens when the
// grounder resolves the free text, so computing a curie earlier is an error.
package models

import (
	"errors"
	"fmt"

	"trialgraph/pkg/curie"
	"trialgraph/pkg/logger"
)

// ErrNotGrounded is returned when a curie is requested from a node whose
// namespace and id are not yet known.
var ErrNotGrounded = errors.New("node is not grounded: curie is undefined")

// NodeKind is the closed set of node types in the graph.
type NodeKind int

const (
	KindTrial NodeKind = iota
	KindCondition
	KindIntervention
)

// Label returns the graph label for the kind.
func (k NodeKind) Label() string {
	switch k {
	case KindTrial:
		return "clinical_trial"
	case KindCondition:
		return "condition"
	case KindIntervention:
		return "intervention"
	}
	return ""
}

// RelType returns the edge relationship type that attaches an entity of this
// kind to a trial. Trials have no rel type.
func (k NodeKind) RelType() string {
	switch k {
	case KindCondition:
		return "has_condition"
	case KindIntervention:
		return "has_intervention"
	}
	return ""
}

// Node carries the identity and provenance fields shared by trials and
// bio-entities.
type Node struct {
	Kind      NodeKind
	Namespace string
	ID        string
	Labels    []string
	Source    string
}

// Grounded reports whether the node has a namespace and local id.
func (n *Node) Grounded() bool {
	return n.Namespace != "" && n.ID != ""
}

// Curie returns the node's compact identifier. It fails with ErrNotGrounded
// until namespace and id are set.
func (n *Node) Curie() (string, error) {
	if !n.Grounded() {
		return "", fmt.Errorf("%w: kind=%s text namespace=%q id=%q", ErrNotGrounded, n.Kind.Label(), n.Namespace, n.ID)
	}
	return curie.String(n.Namespace, n.ID), nil
}

// Standardize rewrites the node's namespace and id to canonical form using
// the given registry. Unresolvable pairs are kept as-is.
func (n *Node) Standardize(registry *curie.Registry) {
	n.Namespace, n.ID = registry.Standardize(n.Namespace, n.ID)
}

// DesignInfo describes how a trial was designed. Sources that do not
// decompose design information set only Fallback.
type DesignInfo struct {
	Purpose    string
	Allocation string
	Masking    string
	Assignment string
	Fallback   string
}

// Empty reports whether no design information was provided at all.
func (d DesignInfo) Empty() bool {
	return d == DesignInfo{}
}

// Outcome is a single measured outcome of a trial.
type Outcome struct {
	Measure   string
	TimeFrame string
}

// Criteria holds free-text eligibility criteria for a trial.
type Criteria struct {
	Inclusion string
	Exclusion string
}

// SecondaryId is an additional identifier a registry lists for a trial,
// usually an id in another registry.
type SecondaryId struct {
	Namespace string
	ID        string
}

// Curie resolves the secondary id to a compact identifier, standardizing
// through the same path as primary identifiers. Ids without a namespace are
// matched against the known registry prefixes.
func (s SecondaryId) Curie(registry *curie.Registry) (string, error) {
	ns, id := s.Namespace, s.ID
	if ns == "" {
		recognized, ok := registry.RecognizeTrialID(id)
		if !ok {
			return "", fmt.Errorf("unrecognized secondary id %q", id)
		}
		ns = recognized
	}
	ns, id = registry.Standardize(ns, id)
	return curie.String(ns, id), nil
}

// Trial is a clinical trial record from one source registry. Its entity
// lists start as ungrounded placeholders built by a fetcher and are replaced
// with grounded entities during processing.
type Trial struct {
	Node

	Title             string
	Design            DesignInfo
	Conditions        []*BioEntity
	Interventions     []*BioEntity
	PrimaryOutcomes   []Outcome
	SecondaryOutcomes []Outcome
	SecondaryIds      []SecondaryId
	Criteria          Criteria
}

// NewTrial creates a trial node with the clinical_trial label.
func NewTrial(ns, id, source string, labels ...string) *Trial {
	return &Trial{
		Node: Node{
			Kind:      KindTrial,
			Namespace: ns,
			ID:        id,
			Labels:    append([]string{KindTrial.Label()}, labels...),
			Source:    source,
		},
	}
}

// BioEntity is a biological concept (condition or intervention) observed in a
// trial. Before grounding only Text is reliable; Namespace and ID may hold a
// best-guess identifier supplied by the source.
type BioEntity struct {
	Node

	// Text is the free text as it appeared in the source record.
	Text string
	// GroundedTerm is the canonical name of the resolved concept.
	GroundedTerm string
	// Origin is the curie of the trial this entity was extracted from.
	Origin string
}

// NewCondition creates an ungrounded condition placeholder.
func NewCondition(text, origin, source string, labels ...string) *BioEntity {
	return newBioEntity(KindCondition, text, origin, source, labels...)
}

// NewIntervention creates an ungrounded intervention placeholder.
func NewIntervention(text, origin, source string, labels ...string) *BioEntity {
	return newBioEntity(KindIntervention, text, origin, source, labels...)
}

func newBioEntity(kind NodeKind, text, origin, source string, labels ...string) *BioEntity {
	return &BioEntity{
		Node: Node{
			Kind:   kind,
			Labels: append([]string{kind.Label()}, labels...),
			Source: source,
		},
		Text:   text,
		Origin: origin,
	}
}

// Edge links a trial to a grounded bio-entity with a typed relationship.
type Edge struct {
	TrialCurie   string
	EntityCurie  string
	RelType      string
	RelTypeCurie string
	Source       string
}

var relTypeCuries = map[string]string{
	"has_condition":    "debio:0000036",
	"has_intervention": "debio:0000035",
}

// NewEdge creates an edge between a trial and an entity. Unknown relationship
// types degrade to an empty rel-type curie and are logged, never fatal.
func NewEdge(trialCurie, entityCurie, relType, source string) Edge {
	relCurie, ok := relTypeCuries[relType]
	if !ok {
		logger.Warn("Relationship type not defined, defaulting to empty curie", "rel_type", relType)
	}
	return Edge{
		TrialCurie:   trialCurie,
		EntityCurie:  entityCurie,
		RelType:      relType,
		RelTypeCurie: relCurie,
		Source:       source,
	}
}

// Key is the identity of an edge for deduplication.
func (e Edge) Key() string {
	return e.TrialCurie + "|" + e.EntityCurie + "|" + e.RelType
}
