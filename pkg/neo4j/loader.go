// Package neo4j bulk-loads produced flat files into a Neo4j instance.
package neo4j

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trialgraph/internal/util"
	"trialgraph/pkg/config"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// batchSize bounds how many rows one UNWIND statement carries.
const batchSize = 1000

// Loader writes trial graphs into Neo4j.
type Loader struct {
	driver neo4j.DriverWithContext
}

// NewLoader connects to Neo4j and verifies connectivity.
func NewLoader(ctx context.Context, cfg config.Neo4jConfig) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Neo4j at %q: %w", cfg.URI, err)
	}

	logger.Info("[Neo4j] Connected", "uri", cfg.URI)
	return &Loader{driver: driver}, nil
}

// Close releases the driver.
func (l *Loader) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}

// EnsureConstraints creates the curie uniqueness constraints the loader
// merges against.
func (l *Loader) EnsureConstraints(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT trial_curie IF NOT EXISTS FOR (t:Trial) REQUIRE t.curie IS UNIQUE",
		"CREATE CONSTRAINT bioentity_curie IF NOT EXISTS FOR (e:BioEntity) REQUIRE e.curie IS UNIQUE",
	}
	for _, constraint := range constraints {
		if _, err := neo4j.ExecuteQuery(ctx, l.driver, constraint, nil, neo4j.EagerResultTransformer); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// LoadGraph loads the registry's trial, bio-entity, and edge flat files.
func (l *Loader) LoadGraph(ctx context.Context, cfg *config.Config) error {
	if err := l.EnsureConstraints(ctx); err != nil {
		return err
	}

	trialQuery := `
		UNWIND $rows AS row
		MERGE (t:Trial {curie: row.curie})
		SET t = row`
	if err := l.loadFile(ctx, cfg.TrialsPath(), trialQuery); err != nil {
		return err
	}

	entityQuery := `
		UNWIND $rows AS row
		MERGE (e:BioEntity {curie: row.curie})
		SET e = row`
	if err := l.loadFile(ctx, cfg.BioEntitiesPath(), entityQuery); err != nil {
		return err
	}

	return l.loadEdges(ctx, cfg.EdgesPath())
}

func (l *Loader) loadFile(ctx context.Context, path, query string) error {
	reader, err := store.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	names, types := splitHeaders(reader.Headers())

	total := 0
	batch := make([]map[string]any, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		params := map[string]any{"rows": batch}
		if _, err := neo4j.ExecuteQuery(ctx, l.driver, query, params, neo4j.EagerResultTransformer); err != nil {
			return fmt.Errorf("failed to load batch from %q: %w", path, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}
		batch = append(batch, RowProperties(names, types, record))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("[Neo4j] Loaded flat file", "path", path, "rows", total)
	return nil
}

// loadEdges groups edge rows per relationship type, because Cypher cannot
// parameterize relationship types.
func (l *Loader) loadEdges(ctx context.Context, path string) error {
	reader, err := store.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	names, types := splitHeaders(reader.Headers())

	grouped := make(map[string][]map[string]any)
	for {
		record, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}
		props := RowProperties(names, types, record)
		relType, _ := props["rel_type"].(string)
		grouped[relType] = append(grouped[relType], props)
	}

	for relType, rows := range grouped {
		relationship, err := RelationshipName(relType)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`
			UNWIND $rows AS row
			MATCH (t:Trial {curie: row.from})
			MATCH (e:BioEntity {curie: row.to})
			MERGE (t)-[r:%s]->(e)
			SET r.rel_curie = row.rel_curie, r.source_registry = row.source_registry`, relationship)

		for start := 0; start < len(rows); start += batchSize {
			end := min(start+batchSize, len(rows))
			params := map[string]any{"rows": rows[start:end]}
			if _, err := neo4j.ExecuteQuery(ctx, l.driver, query, params, neo4j.EagerResultTransformer); err != nil {
				return fmt.Errorf("failed to load %s edges: %w", relType, err)
			}
		}
		logger.Info("[Neo4j] Loaded edges", "rel_type", relType, "rows", len(rows))
	}

	return nil
}

// RelationshipName maps a flat-file rel_type to a Cypher relationship name.
// Only known relationship types are accepted; anything else would splice
// untrusted text into the query.
func RelationshipName(relType string) (string, error) {
	switch relType {
	case "has_condition":
		return "HAS_CONDITION", nil
	case "has_intervention":
		return "HAS_INTERVENTION", nil
	}
	return "", fmt.Errorf("unknown relationship type %q", relType)
}

func splitHeaders(headers []string) ([]string, []string) {
	names := make([]string, len(headers))
	types := make([]string, len(headers))
	for i, cell := range headers {
		names[i], types[i] = store.ParseHeader(cell)
	}
	return names, types
}

// RowProperties converts one flat-file row to Neo4j properties following the
// declared column types. List columns become string slices, numeric columns
// become numbers, and empty cells are omitted.
func RowProperties(names, types []string, record []string) map[string]any {
	props := make(map[string]any, len(record))
	for i, value := range record {
		if i >= len(names) || value == "" {
			continue
		}
		props[names[i]] = convertValue(types[i], value)
	}
	return props
}

func convertValue(typ, value string) any {
	if strings.HasSuffix(typ, "[]") {
		return util.SplitList(value, ";")
	}
	switch typ {
	case "int", "long", "short":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case "float", "double":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}
