// Package graph turns fetched trial records into a deduplicated property
// graph of trials, grounded bio-entities, and typed edges, and writes the
// result to flat files.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"trialgraph/pkg/config"
	"trialgraph/pkg/curie"
	"trialgraph/pkg/ground"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/models"
	"trialgraph/pkg/store"
	"trialgraph/pkg/validate"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyGraph is returned when processing yields no edges at all. A run
// where nothing grounded points at a systemic failure, not sparse data, so
// no files are written.
var ErrEmptyGraph = errors.New("no edges were produced")

// ProcessorParams configures a Processor.
type ProcessorParams struct {
	Config   *config.Config
	Registry *curie.Registry
	Grounder ground.Grounder
	// Mesh is optional. When set, entity annotations that already carry a
	// MeSH id are verified against it offline; ids it does not know are
	// re-grounded from text.
	Mesh ground.MeshLookup
	// ConditionPreprocessor and InterventionPreprocessor let registries
	// clean up entity text before grounding. Nil means no rewriting.
	ConditionPreprocessor    ground.Preprocessor
	InterventionPreprocessor ground.Preprocessor
}

// Processor builds and persists the graph for one registry run.
type Processor struct {
	cfg             *config.Config
	registry        *curie.Registry
	grounder        ground.Grounder
	mesh            ground.MeshLookup
	conditionPre    ground.Preprocessor
	interventionPre ground.Preprocessor
}

// NewProcessor creates a Processor.
func NewProcessor(params ProcessorParams) *Processor {
	conditionPre := params.ConditionPreprocessor
	if conditionPre == nil {
		conditionPre = ground.NoopPreprocessor
	}
	interventionPre := params.InterventionPreprocessor
	if interventionPre == nil {
		interventionPre = ground.NoopPreprocessor
	}
	return &Processor{
		cfg:             params.Config,
		registry:        params.Registry,
		grounder:        params.Grounder,
		mesh:            params.Mesh,
		conditionPre:    conditionPre,
		interventionPre: interventionPre,
	}
}

// Graph is the assembled output of a processing run.
type Graph struct {
	Trials   []*models.Trial
	Entities []*models.BioEntity
	Edges    []models.Edge
}

// Build grounds the entities of the given trials and assembles the
// deduplicated graph. Trials that share a curie keep only their first
// record; entities that resolve to the same curie become one node; edges
// are unique per (trial, entity, relationship).
func (p *Processor) Build(ctx context.Context, trials []*models.Trial) (*Graph, error) {
	deduped := p.dedupeTrials(trials)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.cfg.Parallel)
	for _, trial := range deduped {
		t := trial
		eg.Go(func() error {
			return p.groundTrial(gCtx, t)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("grounding failed: %w", err)
	}

	entityByCurie := make(map[string]*models.BioEntity)
	var entityOrder []string
	edgeSeen := make(map[string]bool)
	var edges []models.Edge

	for _, t := range deduped {
		trialCurie, err := t.Curie()
		if err != nil {
			return nil, err
		}
		for _, entity := range append(append([]*models.BioEntity{}, t.Conditions...), t.Interventions...) {
			entityCurie, err := entity.Curie()
			if err != nil {
				return nil, err
			}
			if _, ok := entityByCurie[entityCurie]; !ok {
				entityByCurie[entityCurie] = entity
				entityOrder = append(entityOrder, entityCurie)
			}
			edge := models.NewEdge(trialCurie, entityCurie, entity.Kind.RelType(), p.cfg.Registry)
			if edgeSeen[edge.Key()] {
				continue
			}
			edgeSeen[edge.Key()] = true
			edges = append(edges, edge)
		}
	}

	if len(edges) == 0 {
		return nil, fmt.Errorf("%w for %d trials: grounding or extraction is broken", ErrEmptyGraph, len(deduped))
	}

	sort.Strings(entityOrder)
	entities := make([]*models.BioEntity, len(entityOrder))
	for i, c := range entityOrder {
		entities[i] = entityByCurie[c]
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].TrialCurie != edges[j].TrialCurie {
			return edges[i].TrialCurie < edges[j].TrialCurie
		}
		if edges[i].EntityCurie != edges[j].EntityCurie {
			return edges[i].EntityCurie < edges[j].EntityCurie
		}
		return edges[i].RelType < edges[j].RelType
	})

	logger.Info("[Graph] Assembled graph",
		"registry", p.cfg.Registry,
		"trials", len(deduped),
		"entities", len(entities),
		"edges", len(edges),
	)

	return &Graph{Trials: deduped, Entities: entities, Edges: edges}, nil
}

// dedupeTrials collapses records by trial curie and drops records whose
// identifier never resolved. A later record with a known curie is the same
// trial refetched, so its entity lists merge into the record seen first.
func (p *Processor) dedupeTrials(trials []*models.Trial) []*models.Trial {
	byCurie := make(map[string]*models.Trial, len(trials))
	deduped := make([]*models.Trial, 0, len(trials))
	for _, t := range trials {
		t.Standardize(p.registry)
		c, err := t.Curie()
		if err != nil {
			logger.Warn("[Graph] Dropping trial without a resolvable id", "title", t.Title)
			continue
		}
		kept, ok := byCurie[c]
		if !ok {
			byCurie[c] = t
			deduped = append(deduped, t)
			continue
		}
		logger.Warn("[Graph] Merging duplicate trial record", "curie", c)
		for _, entity := range t.Conditions {
			entity.Origin = c
			kept.Conditions = append(kept.Conditions, entity)
		}
		for _, entity := range t.Interventions {
			entity.Origin = c
			kept.Interventions = append(kept.Interventions, entity)
		}
	}
	return deduped
}

// groundTrial resolves the trial's entity lists in place, keeping only the
// entities that grounded.
func (p *Processor) groundTrial(ctx context.Context, t *models.Trial) error {
	conditions, err := p.groundEntities(ctx, t.Conditions, t.Title)
	if err != nil {
		return err
	}
	interventions, err := p.groundEntities(ctx, t.Interventions, t.Title)
	if err != nil {
		return err
	}
	t.Conditions = conditions
	t.Interventions = interventions
	return nil
}

func (p *Processor) groundEntities(ctx context.Context, entities []*models.BioEntity, title string) ([]*models.BioEntity, error) {
	grounded := make([]*models.BioEntity, 0, len(entities))
	for _, entity := range entities {
		resolved, err := p.groundEntity(ctx, entity, title)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			logger.Debug("[Graph] Entity did not ground", "text", entity.Text, "trial", entity.Origin)
			continue
		}
		grounded = append(grounded, resolved...)
	}
	return grounded, nil
}

// groundEntity resolves one placeholder into zero or more grounded
// entities. A MeSH annotation supplied by the source is trusted when the
// offline vocabulary knows its id; a vocabulary miss is re-grounded from
// text within MeSH only. Any other source annotation is re-grounded from
// text. Ambiguous text can resolve to several concepts, and each candidate
// becomes its own entity.
func (p *Processor) groundEntity(ctx context.Context, entity *models.BioEntity, title string) ([]*models.BioEntity, error) {
	namespaces := namespacesFor(entity.Kind)
	if entity.Grounded() {
		entity.Standardize(p.registry)
		if entity.Namespace == "mesh" {
			if p.mesh == nil {
				return []*models.BioEntity{entity}, nil
			}
			if name, ok := p.mesh.Name(entity.ID); ok {
				if entity.GroundedTerm == "" {
					entity.GroundedTerm = name
				}
				return []*models.BioEntity{entity}, nil
			}
			logger.Debug("[Graph] Source MeSH id not in vocabulary, regrounding from text", "id", entity.ID, "text", entity.Text)
			namespaces = []string{"MESH"}
		} else {
			logger.Debug("[Graph] Regrounding non-MeSH annotation from text",
				"namespace", entity.Namespace, "id", entity.ID, "text", entity.Text)
		}
		entity.Namespace, entity.ID = "", ""
	}

	text := p.preprocess(entity)
	if text == "" {
		return nil, nil
	}

	candidates, err := p.grounder.Ground(ctx, text, namespaces, title)
	if err != nil {
		return nil, err
	}

	grounded := make([]*models.BioEntity, 0, len(candidates))
	for _, candidate := range candidates {
		resolved := *entity
		resolved.Namespace = candidate.Namespace
		resolved.ID = candidate.ID
		resolved.GroundedTerm = candidate.Name
		resolved.Standardize(p.registry)
		grounded = append(grounded, &resolved)
	}
	return grounded, nil
}

func (p *Processor) preprocess(entity *models.BioEntity) string {
	switch entity.Kind {
	case models.KindCondition:
		return p.conditionPre(entity.Text)
	case models.KindIntervention:
		return p.interventionPre(entity.Text)
	}
	return entity.Text
}

func namespacesFor(kind models.NodeKind) []string {
	switch kind {
	case models.KindCondition:
		return ground.ConditionNamespaces
	case models.KindIntervention:
		return ground.InterventionNamespaces
	}
	return nil
}

// Save writes the graph to the registry's flat files, with bounded samples
// next to them. Append mode extends existing files without repeating
// headers; samples are rewritten either way.
func (p *Processor) Save(g *Graph, mode store.WriteMode) error {
	trialRows := make([][]string, 0, len(g.Trials))
	for _, t := range g.Trials {
		row, err := FlattenTrial(t, p.registry)
		if err != nil {
			return fmt.Errorf("failed to flatten trial: %w", err)
		}
		trialRows = append(trialRows, row)
	}

	entityRows := make([][]string, 0, len(g.Entities))
	for _, e := range g.Entities {
		row, err := FlattenBioEntity(e)
		if err != nil {
			return fmt.Errorf("failed to flatten bio-entity: %w", err)
		}
		entityRows = append(entityRows, row)
	}

	edgeRows := make([][]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		edgeRows = append(edgeRows, FlattenEdge(e))
	}

	if err := store.Save(store.SaveParams{
		Path:       p.cfg.TrialsPath(),
		SamplePath: p.cfg.TrialsSamplePath(),
		SampleSize: p.cfg.NumSampleEntries,
		Mode:       mode,
		Columns:    TrialColumns,
	}, trialRows); err != nil {
		return err
	}

	if err := store.Save(store.SaveParams{
		Path:       p.cfg.BioEntitiesPath(),
		SamplePath: p.cfg.BioEntitiesSamplePath(),
		SampleSize: p.cfg.NumSampleEntries,
		Mode:       mode,
		Columns:    BioEntityColumns,
	}, entityRows); err != nil {
		return err
	}

	return store.Save(store.SaveParams{
		Path:       p.cfg.EdgesPath(),
		SamplePath: p.cfg.EdgesSamplePath(),
		SampleSize: p.cfg.NumSampleEntries,
		Mode:       mode,
		Columns:    EdgeColumns,
	}, edgeRows)
}

// Validate checks the written flat files against the column type
// vocabulary.
func (p *Processor) Validate(strict bool) ([]*validate.ValueError, error) {
	v := validate.New(p.registry, strict)
	var violations []*validate.ValueError
	for _, path := range []string{p.cfg.TrialsPath(), p.cfg.BioEntitiesPath(), p.cfg.EdgesPath()} {
		fileViolations, err := v.ValidateFile(path)
		violations = append(violations, fileViolations...)
		if err != nil {
			return violations, err
		}
	}
	return violations, nil
}
