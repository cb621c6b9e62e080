package ground

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// MeshLookup answers whether a MeSH identifier is valid without a network
// round trip. Entities that already carry a MeSH id from the source are
// checked here before any grounding call is spent on them.
type MeshLookup interface {
	Name(id string) (string, bool)
}

// FileMeshLookup is a MeshLookup backed by a TSV file of "id<TAB>name" rows.
// Files ending in .gz are decompressed transparently.
type FileMeshLookup struct {
	names map[string]string
}

// LoadMeshTerms reads a MeSH term table from disk.
func LoadMeshTerms(path string) (*FileMeshLookup, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mesh terms file %q: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read gzip mesh terms file %q: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	names := make(map[string]string)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		id, name, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		names[id] = strings.TrimSpace(name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan mesh terms file %q: %w", path, err)
	}

	return &FileMeshLookup{names: names}, nil
}

// Name returns the canonical name for a MeSH id, if known.
func (l *FileMeshLookup) Name(id string) (string, bool) {
	name, ok := l.names[id]
	return name, ok
}
