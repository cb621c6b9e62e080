// Package config loads registry-processing configuration from a TOML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trialgraph/internal/util"
	"trialgraph/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/pelletier/go-toml/v2"
)

// GrounderConfig configures the grounding-service client.
type GrounderConfig struct {
	URL        string `toml:"url" validate:"required"`
	MaxRetries int    `toml:"max_retries"`
	// MeshTermsFile is an optional TSV of mesh id -> canonical name used for
	// offline validation of pre-supplied MeSH identifiers.
	MeshTermsFile string `toml:"mesh_terms_file"`
}

// Neo4jConfig configures the optional bulk loader target.
type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// S3Config configures the optional upload of produced flat files.
type S3Config struct {
	Enabled bool   `toml:"enabled"`
	Bucket  string `toml:"bucket"`
	Prefix  string `toml:"prefix"`
}

// RegistryConfig holds per-registry fetch settings.
type RegistryConfig struct {
	APIURL    string   `toml:"api_url"`
	APIFields []string `toml:"api_fields"`
	PageSize  int      `toml:"page_size"`
	// CSVFile is the export file name for flat-file registries, resolved
	// relative to the data directory.
	CSVFile string `toml:"csv_file"`
}

// Config is the merged configuration for one registry run.
type Config struct {
	Registry         string `toml:"-" validate:"required"`
	DataDir          string `toml:"data_dir" validate:"required"`
	NumSampleEntries int    `toml:"num_sample_entries" validate:"min=0"`
	Parallel         int    `toml:"parallel" validate:"min=1"`

	Grounder   GrounderConfig            `toml:"grounder"`
	Neo4j      Neo4jConfig               `toml:"neo4j"`
	S3         S3Config                  `toml:"s3"`
	Registries map[string]RegistryConfig `toml:"registries"`
}

func defaults() Config {
	return Config{
		DataDir:          "~/.data/trialgraph",
		NumSampleEntries: 10,
		Parallel:         1,
		Grounder: GrounderConfig{
			MaxRetries: 3,
		},
	}
}

// Load reads the TOML config at path, applies environment overrides, and
// resolves it for the named registry. A missing file is not an error; the
// defaults plus environment are used.
func Load(path, registry string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Debug("No config file found, using defaults and environment", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	cfg.Registry = registry
	applyEnv(&cfg)

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Grounder.MeshTermsFile = expandHome(cfg.Grounder.MeshTermsFile)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, ok := cfg.Registries[registry]; !ok {
		return nil, fmt.Errorf("registry %q not found in configuration", registry)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DataDir = util.GetEnvString("DATA_DIR", cfg.DataDir)
	cfg.NumSampleEntries = util.GetEnvInt("NUM_SAMPLE_ENTRIES", cfg.NumSampleEntries)
	cfg.Parallel = util.GetEnvInt("PARALLEL_GROUNDING", cfg.Parallel)

	cfg.Grounder.URL = util.GetEnvString("GROUNDER_URL", cfg.Grounder.URL)
	cfg.Grounder.MaxRetries = util.GetEnvInt("GROUNDER_MAX_RETRIES", cfg.Grounder.MaxRetries)
	cfg.Grounder.MeshTermsFile = util.GetEnvString("MESH_TERMS_FILE", cfg.Grounder.MeshTermsFile)

	cfg.Neo4j.URI = util.GetEnvString("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = util.GetEnvString("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = util.GetEnvString("NEO4J_PASSWORD", cfg.Neo4j.Password)

	cfg.S3.Enabled = util.GetEnvBool("S3_UPLOAD", cfg.S3.Enabled)
	cfg.S3.Bucket = util.GetEnvString("AWS_BUCKET", cfg.S3.Bucket)
	cfg.S3.Prefix = util.GetEnvString("S3_PREFIX", cfg.S3.Prefix)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// RegistrySettings returns the fetch settings for the configured registry.
func (c *Config) RegistrySettings() RegistryConfig {
	return c.Registries[c.Registry]
}

// RegistryDataDir is the per-registry output directory.
func (c *Config) RegistryDataDir() string {
	return filepath.Join(c.DataDir, c.Registry)
}

// SampleDir is the directory for bounded sample files.
func (c *Config) SampleDir() string {
	return filepath.Join(c.RegistryDataDir(), "samples")
}

// RawDataPath is where fetched trial records are cached between runs.
func (c *Config) RawDataPath() string {
	return filepath.Join(c.RegistryDataDir(), "raw_trials.json.gz")
}

// TrialsPath is the trial-node flat file.
func (c *Config) TrialsPath() string {
	return filepath.Join(c.RegistryDataDir(), "trials.tsv.gz")
}

// TrialsSamplePath is the bounded trial-node sample.
func (c *Config) TrialsSamplePath() string {
	return filepath.Join(c.SampleDir(), "trials_sample.tsv")
}

// BioEntitiesPath is the bio-entity-node flat file.
func (c *Config) BioEntitiesPath() string {
	return filepath.Join(c.RegistryDataDir(), "bioentities.tsv.gz")
}

// BioEntitiesSamplePath is the bounded bio-entity sample.
func (c *Config) BioEntitiesSamplePath() string {
	return filepath.Join(c.SampleDir(), "bioentities_sample.tsv")
}

// EdgesPath is the edge flat file.
func (c *Config) EdgesPath() string {
	return filepath.Join(c.RegistryDataDir(), "edges.tsv.gz")
}

// EdgesSamplePath is the bounded edge sample.
func (c *Config) EdgesSamplePath() string {
	return filepath.Join(c.SampleDir(), "edges_sample.tsv")
}

// CSVPath resolves the flat-file export location for CSV-based registries.
func (c *Config) CSVPath() string {
	settings := c.RegistrySettings()
	if settings.CSVFile == "" {
		return ""
	}
	if filepath.IsAbs(settings.CSVFile) {
		return settings.CSVFile
	}
	return filepath.Join(c.RegistryDataDir(), settings.CSVFile)
}
