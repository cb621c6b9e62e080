// Package fetch defines how trial records enter the pipeline. Each source
// registry provides a Fetcher that downloads or reads raw records, caches
// them on disk, and maps them to the shared trial model.
package fetch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"trialgraph/pkg/logger"
	"trialgraph/pkg/models"
)

// Fetcher retrieves the trial records of one registry.
type Fetcher interface {
	// Registry returns the registry key this fetcher serves.
	Registry() string
	// Fetch returns all trial records. When reload is false and a raw-record
	// cache exists, the cache is used instead of the upstream source.
	Fetch(ctx context.Context, reload bool) ([]*models.Trial, error)
}

// LoadRaw reads a gzip-compressed JSON cache of raw registry records.
func LoadRaw[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw cache %q: %w", path, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw cache %q: %w", path, err)
	}
	defer gz.Close()

	var records []T
	if err := json.NewDecoder(gz).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode raw cache %q: %w", path, err)
	}

	logger.Debug("[Fetch] Loaded raw records from cache", "path", path, "records", len(records))
	return records, nil
}

// SaveRaw writes raw registry records to a gzip-compressed JSON cache so
// later runs can skip the upstream source.
func SaveRaw[T any](path string, records []T) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raw cache %q: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	gz := gzip.NewWriter(file)
	defer func() {
		if closeErr := gz.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := json.NewEncoder(gz).Encode(records); err != nil {
		return fmt.Errorf("failed to encode raw cache %q: %w", path, err)
	}

	logger.Debug("[Fetch] Cached raw records", "path", path, "records", len(records))
	return nil
}

// CacheExists reports whether a raw-record cache is present at path.
func CacheExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
