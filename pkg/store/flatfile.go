// Package store reads and writes the graph flat files: tab-separated tables
// with typed headers, gzip-compressed on disk, plus bounded plain-text
// samples for quick inspection.
package store

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trialgraph/pkg/logger"
)

// flushEvery bounds how many rows are buffered before the underlying
// writer is flushed.
const flushEvery = 1000

// WriteMode controls whether Save replaces the target file or extends it.
type WriteMode int

const (
	// Truncate replaces the file and writes a fresh header row.
	Truncate WriteMode = iota
	// Append extends an existing file and writes no header.
	Append
)

// Column describes one flat-file column. The header cell is rendered as
// "name:TYPE", for example "curie:CURIE" or "labels:LABEL[]".
type Column struct {
	Name string
	Type string
}

func (c Column) header() string {
	return c.Name + ":" + c.Type
}

// Headers renders a column set into header cells.
func Headers(columns []Column) []string {
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.header()
	}
	return headers
}

// ParseHeader splits a "name:TYPE" header cell. The type of an untyped
// header is empty.
func ParseHeader(cell string) (name, typ string) {
	name, typ, _ = strings.Cut(cell, ":")
	return name, typ
}

// SaveParams configures one flat-file write.
type SaveParams struct {
	Path string
	// SamplePath, when set, receives an uncompressed copy of the header and
	// the first SampleSize rows.
	SamplePath string
	SampleSize int
	Mode       WriteMode
	Columns    []Column
}

// Save writes rows to a flat file. Every row must have exactly one cell per
// column. The sample file is always truncated and always gets a header, so
// it stays a readable excerpt even across append runs.
func Save(params SaveParams, rows [][]string) (err error) {
	if err := os.MkdirAll(filepath.Dir(params.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if params.Mode == Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(params.Path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", params.Path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var out io.Writer = file
	var gz *gzip.Writer
	if strings.HasSuffix(params.Path, ".gz") {
		gz = gzip.NewWriter(file)
		defer func() {
			if closeErr := gz.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		out = gz
	}

	writer := csv.NewWriter(out)
	writer.Comma = '\t'

	headers := Headers(params.Columns)
	if params.Mode == Truncate {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write header to %q: %w", params.Path, err)
		}
	}

	var sample *csv.Writer
	if params.SamplePath != "" && params.SampleSize > 0 {
		if err := os.MkdirAll(filepath.Dir(params.SamplePath), 0o755); err != nil {
			return fmt.Errorf("failed to create sample directory: %w", err)
		}
		sampleFile, err := os.Create(params.SamplePath)
		if err != nil {
			return fmt.Errorf("failed to open sample file %q: %w", params.SamplePath, err)
		}
		defer func() {
			if closeErr := sampleFile.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		sample = csv.NewWriter(sampleFile)
		sample.Comma = '\t'
		if err := sample.Write(headers); err != nil {
			return fmt.Errorf("failed to write sample header: %w", err)
		}
	}

	for i, row := range rows {
		if len(row) != len(params.Columns) {
			return fmt.Errorf("row %d of %q has %d cells, want %d", i, params.Path, len(row), len(params.Columns))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d to %q: %w", i, params.Path, err)
		}
		if sample != nil && i < params.SampleSize {
			if err := sample.Write(row); err != nil {
				return fmt.Errorf("failed to write sample row %d: %w", i, err)
			}
		}
		if (i+1)%flushEvery == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return fmt.Errorf("failed to flush %q: %w", params.Path, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %q: %w", params.Path, err)
	}
	if sample != nil {
		sample.Flush()
		if err := sample.Error(); err != nil {
			return fmt.Errorf("failed to flush sample file: %w", err)
		}
	}

	logger.Debug("[Store] Wrote flat file", "path", params.Path, "rows", len(rows))
	return nil
}

// Reader streams rows out of a flat file, decompressing .gz files
// transparently. The header row is consumed on open.
type Reader struct {
	file    *os.File
	gz      *gzip.Reader
	csv     *csv.Reader
	headers []string
}

// Open opens a flat file for reading.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	reader := &Reader{file: file}
	var in io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to read gzip file %q: %w", path, err)
		}
		// Append runs produce multi-member gzip files.
		gz.Multistream(true)
		reader.gz = gz
		in = gz
	}

	reader.csv = csv.NewReader(in)
	reader.csv.Comma = '\t'
	reader.csv.FieldsPerRecord = -1

	headers, err := reader.csv.Read()
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to read header of %q: %w", path, err)
	}
	reader.headers = headers

	return reader, nil
}

// Headers returns the raw "name:TYPE" header cells.
func (r *Reader) Headers() []string {
	return r.headers
}

// Next returns the next data row, or io.EOF when the file is exhausted.
func (r *Reader) Next() ([]string, error) {
	return r.csv.Read()
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.gz != nil {
		if err := r.gz.Close(); err != nil {
			r.file.Close()
			return err
		}
	}
	return r.file.Close()
}
