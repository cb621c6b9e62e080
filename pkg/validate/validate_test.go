package validate

import (
	"errors"
	"path/filepath"
	"testing"

	"trialgraph/pkg/curie"
	"trialgraph/pkg/store"
)

func newValidator(t *testing.T, strict bool) *Validator {
	t.Helper()
	registry, err := curie.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return New(registry, strict)
}

func writeFlatFile(t *testing.T, columns []store.Column, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.tsv.gz")
	err := store.Save(store.SaveParams{Path: path, Mode: store.Truncate, Columns: columns}, rows)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	return path
}

func TestValidateCleanFile(t *testing.T) {
	path := writeFlatFile(t,
		[]store.Column{
			{Name: "curie", Type: "CURIE"},
			{Name: "phase", Type: "int"},
			{Name: "conditions", Type: "CURIE[]"},
			{Name: "active", Type: "boolean"},
		},
		[][]string{
			{"clinicaltrials:NCT00000001", "2", "mesh:D003920;doid:9351", "true"},
			{"clinicaltrials:NCT00000002", "", "", "false"},
		},
	)

	violations, err := newValidator(t, false).ValidateFile(path)
	if err != nil {
		t.Fatalf("ValidateFile() error: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("got %d violations, want 0: %v", len(violations), violations)
	}
}

func TestValidateCollectsViolations(t *testing.T) {
	path := writeFlatFile(t,
		[]store.Column{
			{Name: "curie", Type: "CURIE"},
			{Name: "phase", Type: "int"},
		},
		[][]string{
			{"clinicaltrials:NCT00000001", "two"},
			{"notacurie", "3"},
			{"bogusns:123", "4"},
		},
	)

	violations, err := newValidator(t, false).ValidateFile(path)
	if err != nil {
		t.Fatalf("ValidateFile() error: %v", err)
	}
	if len(violations) != 3 {
		t.Fatalf("got %d violations, want 3: %v", len(violations), violations)
	}
	if violations[0].Row != 2 || violations[0].Column != "phase" {
		t.Errorf("first violation = %+v", violations[0])
	}
	if violations[1].Reason != "missing namespace prefix" {
		t.Errorf("second violation reason = %q", violations[1].Reason)
	}
}

func TestValidateStrictStopsEarly(t *testing.T) {
	path := writeFlatFile(t,
		[]store.Column{{Name: "phase", Type: "int"}},
		[][]string{{"two"}, {"three"}},
	)

	_, err := newValidator(t, true).ValidateFile(path)
	var valueErr *ValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("expected *ValueError, got %v", err)
	}
	if valueErr.Row != 2 {
		t.Errorf("Row = %d, want 2", valueErr.Row)
	}
}

func TestValidateUnknownHeaderTypeIsFatal(t *testing.T) {
	path := writeFlatFile(t,
		[]store.Column{{Name: "weird", Type: "TIMESTAMP"}},
		[][]string{{"irrelevant"}},
	)

	_, err := newValidator(t, false).ValidateFile(path)
	var typeErr *UnknownTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected *UnknownTypeError, got %v", err)
	}
	if typeErr.Column != "weird" || typeErr.Type != "TIMESTAMP" {
		t.Errorf("unexpected error details: %+v", typeErr)
	}
}

func TestCheckValue(t *testing.T) {
	v := newValidator(t, false)

	tests := []struct {
		name    string
		typ     string
		value   string
		wantBad bool
	}{
		{"empty is always valid", "int", "", false},
		{"valid integer", "long", "42", false},
		{"bad integer", "int", "two", true},
		{"valid float", "double", "3.14", false},
		{"bad float", "float", "pi", true},
		{"boolean true", "boolean", "true", false},
		{"boolean capitalized", "boolean", "True", true},
		{"curie with pattern", "CURIE", "mesh:D003920", false},
		{"curie bad pattern", "CURIE", "mesh:XYZ", true},
		{"curie eu trial", "CURIE", "euclinicaltrials:2014-001234-42", false},
		{"structured design", "DESIGN", "Purpose: treatment; Allocation: randomized; Masking: double; Assignment: parallel", false},
		{"structured design missing field", "DESIGN", "Purpose: treatment; Allocation: randomized", true},
		{"opaque design", "DESIGN", "Randomized, double-blind", false},
		{"structured outcome", "OUTCOME", "Measure: HbA1c, Time Frame: 12 weeks", false},
		{"structured outcome missing frame", "OUTCOME", "Measure: HbA1c", true},
		{"opaque outcome", "OUTCOME", "Change in blood pressure", false},
		{"label", "LABEL", "clinical_trial", false},
		{"curie list", "CURIE[]", "mesh:D003920;chebi:6801", false},
		{"curie list with bad element", "CURIE[]", "mesh:D003920;nonsense", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := v.checkValue(tt.typ, tt.value)
			if got := reason != ""; got != tt.wantBad {
				t.Errorf("checkValue(%q, %q) = %q, wantBad=%v", tt.typ, tt.value, reason, tt.wantBad)
			}
		})
	}
}
