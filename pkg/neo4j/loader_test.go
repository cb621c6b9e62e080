package neo4j

import (
	"reflect"
	"testing"
)

func TestRowProperties(t *testing.T) {
	names := []string{"curie", "title", "conditions", "phase", "active"}
	types := []string{"CURIE", "string", "CURIE[]", "int", "boolean"}
	record := []string{"clinicaltrials:NCT00000001", "Metformin Trial", "mesh:D003920;doid:9351", "2", "true"}

	got := RowProperties(names, types, record)
	want := map[string]any{
		"curie":      "clinicaltrials:NCT00000001",
		"title":      "Metformin Trial",
		"conditions": []string{"mesh:D003920", "doid:9351"},
		"phase":      int64(2),
		"active":     true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RowProperties() = %v, want %v", got, want)
	}
}

func TestRowPropertiesOmitsEmptyCells(t *testing.T) {
	names := []string{"curie", "title"}
	types := []string{"CURIE", "string"}
	got := RowProperties(names, types, []string{"clinicaltrials:NCT00000001", ""})

	if _, ok := got["title"]; ok {
		t.Errorf("empty cell must be omitted, got %v", got)
	}
	if len(got) != 1 {
		t.Errorf("got %d properties, want 1", len(got))
	}
}

func TestRelationshipName(t *testing.T) {
	tests := []struct {
		relType string
		want    string
		wantErr bool
	}{
		{"has_condition", "HAS_CONDITION", false},
		{"has_intervention", "HAS_INTERVENTION", false},
		{"owns; DETACH DELETE", "", true},
	}
	for _, tt := range tests {
		got, err := RelationshipName(tt.relType)
		if (err != nil) != tt.wantErr {
			t.Errorf("RelationshipName(%q) error = %v, wantErr %v", tt.relType, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RelationshipName(%q) = %q, want %q", tt.relType, got, tt.want)
		}
	}
}

func TestSplitHeaders(t *testing.T) {
	names, types := splitHeaders([]string{"from:CURIE", "rel_type:string"})
	if !reflect.DeepEqual(names, []string{"from", "rel_type"}) {
		t.Errorf("names = %v", names)
	}
	if !reflect.DeepEqual(types, []string{"CURIE", "string"}) {
		t.Errorf("types = %v", types)
	}
}
