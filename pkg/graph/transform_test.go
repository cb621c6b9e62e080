package graph

import (
	"reflect"
	"testing"

	"trialgraph/pkg/curie"
	"trialgraph/pkg/models"
)

func testRegistry(t *testing.T) *curie.Registry {
	t.Helper()
	registry, err := curie.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return registry
}

func TestFlattenDesign(t *testing.T) {
	tests := []struct {
		name   string
		design models.DesignInfo
		want   string
	}{
		{
			"structured",
			models.DesignInfo{Purpose: "Treatment", Allocation: "Randomized", Masking: "Double", Assignment: "Parallel"},
			"Purpose: Treatment; Allocation: Randomized; Masking: Double; Assignment: Parallel",
		},
		{
			"partially structured keeps all fields",
			models.DesignInfo{Purpose: "Treatment"},
			"Purpose: Treatment; Allocation: ; Masking: ; Assignment: ",
		},
		{"fallback only", models.DesignInfo{Fallback: "Randomized, open label"}, "Randomized, open label"},
		{"empty", models.DesignInfo{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenDesign(tt.design); got != tt.want {
				t.Errorf("FlattenDesign() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlattenOutcomes(t *testing.T) {
	outcomes := []models.Outcome{
		{Measure: "HbA1c change", TimeFrame: "12 weeks"},
		{},
		{Measure: "Fasting glucose", TimeFrame: "26 weeks"},
	}
	want := "Measure: HbA1c change, Time Frame: 12 weeks;Measure: Fasting glucose, Time Frame: 26 weeks"
	if got := FlattenOutcomes(outcomes); got != want {
		t.Errorf("FlattenOutcomes() = %q, want %q", got, want)
	}
}

func TestFlattenTrial(t *testing.T) {
	registry := testRegistry(t)

	trial := models.NewTrial("clinicaltrials", "NCT00000001", "ctgov")
	trial.Title = "  Metformin in Type 2 Diabetes "
	trial.Design = models.DesignInfo{Fallback: "Interventional"}
	trial.PrimaryOutcomes = []models.Outcome{{Measure: "HbA1c", TimeFrame: "12 weeks"}}
	trial.SecondaryIds = []models.SecondaryId{
		{ID: "ISRCTN12345678"},
		{ID: "garbage-id"},
	}

	condition := models.NewCondition("diabetes", "clinicaltrials:NCT00000001", "ctgov")
	condition.Namespace, condition.ID = "mesh", "D003920"
	trial.Conditions = []*models.BioEntity{condition, condition}

	row, err := FlattenTrial(trial, registry)
	if err != nil {
		t.Fatalf("FlattenTrial() error: %v", err)
	}

	want := []string{
		"clinicaltrials:NCT00000001",
		"Metformin in Type 2 Diabetes",
		"clinical_trial",
		"Interventional",
		"mesh:D003920",
		"",
		"Measure: HbA1c, Time Frame: 12 weeks",
		"",
		"isrctn:ISRCTN12345678",
		"ctgov",
	}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("FlattenTrial() = %v, want %v", row, want)
	}
}

func TestFlattenTrialRequiresGrounding(t *testing.T) {
	trial := &models.Trial{}
	if _, err := FlattenTrial(trial, testRegistry(t)); err == nil {
		t.Fatal("expected error for trial without a curie")
	}
}

func TestFlattenBioEntity(t *testing.T) {
	entity := models.NewIntervention("Metformin 500mg", "clinicaltrials:NCT00000001", "ctgov")
	entity.Namespace, entity.ID = "chebi", "6801"
	entity.GroundedTerm = "metformin"

	row, err := FlattenBioEntity(entity)
	if err != nil {
		t.Fatalf("FlattenBioEntity() error: %v", err)
	}
	want := []string{"chebi:6801", "metformin", "intervention", "ctgov"}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("FlattenBioEntity() = %v, want %v", row, want)
	}
}

func TestFlattenEdge(t *testing.T) {
	edge := models.NewEdge("clinicaltrials:NCT00000001", "mesh:D003920", "has_condition", "ctgov")
	want := []string{"clinicaltrials:NCT00000001", "mesh:D003920", "has_condition", "debio:0000036", "ctgov"}
	if got := FlattenEdge(edge); !reflect.DeepEqual(got, want) {
		t.Errorf("FlattenEdge() = %v, want %v", got, want)
	}
}
