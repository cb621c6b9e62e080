// Package validate checks produced flat files against the column type
// vocabulary before they are shipped to a graph database.
package validate

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trialgraph/pkg/curie"
	"trialgraph/pkg/logger"
	"trialgraph/pkg/store"
)

// UnknownTypeError reports a header whose declared type is not in the
// vocabulary. This is always fatal: a file with an unparseable schema
// cannot be meaningfully checked row by row.
type UnknownTypeError struct {
	Column string
	Type   string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("column %q declares unknown type %q", e.Column, e.Type)
}

// ValueError reports one cell that does not conform to its column type.
type ValueError struct {
	File   string
	Row    int
	Column string
	Type   string
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s row %d column %q: value %q is not a valid %s: %s",
		e.File, e.Row, e.Column, e.Value, e.Type, e.Reason)
}

// Validator checks flat-file cells against their declared types. CURIE
// checks consult the namespace registry for known prefixes and identifier
// patterns.
type Validator struct {
	registry *curie.Registry
	// strict stops at the first bad value instead of collecting all of them.
	strict bool
}

// New creates a Validator.
func New(registry *curie.Registry, strict bool) *Validator {
	return &Validator{registry: registry, strict: strict}
}

// ValidateFile checks every cell of the flat file at path. Value violations
// are returned as a slice; the error return is reserved for fatal problems
// such as I/O failures or an invalid schema. In strict mode the first value
// violation is promoted to a fatal error.
func (v *Validator) ValidateFile(path string) ([]*ValueError, error) {
	reader, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	headers := reader.Headers()
	names := make([]string, len(headers))
	types := make([]string, len(headers))
	for i, cell := range headers {
		name, typ := store.ParseHeader(cell)
		if !knownType(typ) {
			return nil, fmt.Errorf("invalid schema in %q: %w", path, &UnknownTypeError{Column: name, Type: typ})
		}
		names[i] = name
		types[i] = typ
	}

	var violations []*ValueError
	row := 1
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		row++
		if len(record) != len(headers) {
			return nil, fmt.Errorf("%s row %d has %d cells, want %d", path, row, len(record), len(headers))
		}
		for i, value := range record {
			if reason := v.checkValue(types[i], value); reason != "" {
				violation := &ValueError{
					File:   path,
					Row:    row,
					Column: names[i],
					Type:   types[i],
					Value:  value,
					Reason: reason,
				}
				if v.strict {
					return violations, violation
				}
				logger.Warn("[Validate] Invalid value", "file", path, "row", row, "column", names[i], "reason", reason)
				violations = append(violations, violation)
			}
		}
	}

	logger.Info("[Validate] Checked flat file", "path", path, "rows", row-1, "violations", len(violations))
	return violations, nil
}

func knownType(typ string) bool {
	switch strings.TrimSuffix(typ, "[]") {
	case "string", "int", "long", "short", "float", "double", "boolean",
		"CURIE", "DESIGN", "OUTCOME", "LABEL":
		return true
	}
	return false
}

// checkValue returns a human-readable reason when value does not conform to
// typ, and the empty string when it does. The empty value is valid for
// every type.
func (v *Validator) checkValue(typ, value string) string {
	if value == "" {
		return ""
	}
	if base, isList := strings.CutSuffix(typ, "[]"); isList {
		for _, element := range strings.Split(value, ";") {
			if reason := v.checkValue(base, element); reason != "" {
				return reason
			}
		}
		return ""
	}

	switch typ {
	case "string", "LABEL":
		return ""
	case "int", "long", "short":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "not an integer"
		}
	case "float", "double":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "not a number"
		}
	case "boolean":
		if value != "true" && value != "false" {
			return `not a boolean literal ("true" or "false")`
		}
	case "CURIE":
		return v.checkCurie(value)
	case "DESIGN":
		return checkDesign(value)
	case "OUTCOME":
		return checkOutcome(value)
	}
	return ""
}

func (v *Validator) checkCurie(value string) string {
	namespace, id, err := curie.Parse(value)
	if err != nil || id == "" {
		return "missing namespace prefix"
	}
	if !v.registry.Known(namespace) {
		return fmt.Sprintf("unknown namespace %q", namespace)
	}
	pattern, ok := v.registry.Pattern(namespace)
	if ok && !pattern.MatchString(id) {
		return fmt.Sprintf("identifier does not match the %s pattern", namespace)
	}
	return ""
}

// checkDesign validates structured design strings. Values that do not start
// with "Purpose:" are opaque registry-specific descriptions and pass
// unchecked.
func checkDesign(value string) string {
	if !strings.HasPrefix(value, "Purpose:") {
		return ""
	}
	for _, field := range []string{"Purpose:", "Allocation:", "Masking:", "Assignment:"} {
		if !strings.Contains(value, field) {
			return fmt.Sprintf("structured design is missing the %q field", strings.TrimSuffix(field, ":"))
		}
	}
	return ""
}

// checkOutcome validates structured outcome strings. Values that do not
// start with "Measure:" pass unchecked.
func checkOutcome(value string) string {
	if !strings.HasPrefix(value, "Measure:") {
		return ""
	}
	if !strings.Contains(value, "Time Frame:") {
		return `structured outcome is missing the "Time Frame" field`
	}
	return ""
}
