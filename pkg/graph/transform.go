package graph

import (
	"fmt"
	"strings"

	"trialgraph/internal/util"
	"trialgraph/pkg/curie"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/models"
	"trialgraph/pkg/store"
)

// TrialColumns is the schema of the trial-node flat file.
var TrialColumns = []store.Column{
	{Name: "curie", Type: "CURIE"},
	{Name: "title", Type: "string"},
	{Name: "labels", Type: "LABEL[]"},
	{Name: "design", Type: "DESIGN"},
	{Name: "conditions", Type: "CURIE[]"},
	{Name: "interventions", Type: "CURIE[]"},
	{Name: "primary_outcome", Type: "OUTCOME[]"},
	{Name: "secondary_outcome", Type: "OUTCOME[]"},
	{Name: "secondary_ids", Type: "CURIE[]"},
	{Name: "source_registry", Type: "string"},
}

// BioEntityColumns is the schema of the bio-entity-node flat file.
var BioEntityColumns = []store.Column{
	{Name: "curie", Type: "CURIE"},
	{Name: "term", Type: "string"},
	{Name: "labels", Type: "LABEL[]"},
	{Name: "source_registry", Type: "string"},
}

// EdgeColumns is the schema of the edge flat file.
var EdgeColumns = []store.Column{
	{Name: "from", Type: "CURIE"},
	{Name: "to", Type: "CURIE"},
	{Name: "rel_type", Type: "string"},
	{Name: "rel_curie", Type: "CURIE"},
	{Name: "source_registry", Type: "string"},
}

// FlattenDesign renders design information for the flat file. Decomposed
// designs render all four fields; sources that only provide an opaque
// description fall back to it verbatim.
func FlattenDesign(d models.DesignInfo) string {
	if d.Empty() {
		return ""
	}
	if d.Purpose == "" && d.Allocation == "" && d.Masking == "" && d.Assignment == "" {
		return d.Fallback
	}
	return fmt.Sprintf("Purpose: %s; Allocation: %s; Masking: %s; Assignment: %s",
		d.Purpose, d.Allocation, d.Masking, d.Assignment)
}

// FlattenOutcomes renders a trial's outcomes as a semicolon-joined list.
func FlattenOutcomes(outcomes []models.Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Measure == "" && o.TimeFrame == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Measure: %s, Time Frame: %s", o.Measure, o.TimeFrame))
	}
	return util.JoinList(parts)
}

// entityCuries returns the distinct curies of the grounded entities,
// preserving first-occurrence order.
func entityCuries(entities []*models.BioEntity) []string {
	seen := make(map[string]bool, len(entities))
	curies := make([]string, 0, len(entities))
	for _, e := range entities {
		c, err := e.Curie()
		if err != nil {
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		curies = append(curies, c)
	}
	return curies
}

// FlattenTrial renders a grounded trial as a flat-file row matching
// TrialColumns. Secondary ids that cannot be resolved to a known registry
// are dropped with a warning.
func FlattenTrial(t *models.Trial, registry *curie.Registry) ([]string, error) {
	trialCurie, err := t.Curie()
	if err != nil {
		return nil, err
	}

	secondary := make([]string, 0, len(t.SecondaryIds))
	for _, sid := range t.SecondaryIds {
		c, err := sid.Curie(registry)
		if err != nil {
			logger.Warn("[Graph] Dropping unresolvable secondary id", "trial", trialCurie, "id", sid.ID)
			continue
		}
		secondary = append(secondary, c)
	}

	return []string{
		trialCurie,
		strings.TrimSpace(t.Title),
		util.JoinList(t.Labels),
		FlattenDesign(t.Design),
		util.JoinList(entityCuries(t.Conditions)),
		util.JoinList(entityCuries(t.Interventions)),
		FlattenOutcomes(t.PrimaryOutcomes),
		FlattenOutcomes(t.SecondaryOutcomes),
		util.JoinList(secondary),
		t.Source,
	}, nil
}

// FlattenBioEntity renders a grounded bio-entity as a flat-file row matching
// BioEntityColumns. The term column prefers the grounder's canonical name
// over the source text.
func FlattenBioEntity(e *models.BioEntity) ([]string, error) {
	c, err := e.Curie()
	if err != nil {
		return nil, err
	}
	term := e.GroundedTerm
	if term == "" {
		term = e.Text
	}
	return []string{
		c,
		strings.TrimSpace(term),
		util.JoinList(e.Labels),
		e.Source,
	}, nil
}

// FlattenEdge renders an edge as a flat-file row matching EdgeColumns.
func FlattenEdge(e models.Edge) []string {
	return []string{
		e.TrialCurie,
		e.EntityCurie,
		e.RelType,
		e.RelTypeCurie,
		e.Source,
	}
}
