package curie

import "testing"

func TestStandardize(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	tests := []struct {
		name   string
		ns     string
		id     string
		wantNs string
		wantID string
	}{
		{
			name:   "uppercase mesh",
			ns:     "MESH",
			id:     "D003920",
			wantNs: "mesh",
			wantID: "D003920",
		},
		{
			name:   "already canonical",
			ns:     "doid",
			id:     "9352",
			wantNs: "doid",
			wantID: "9352",
		},
		{
			name:   "redundant prefix in id",
			ns:     "DOID",
			id:     "DOID:9352",
			wantNs: "doid",
			wantID: "9352",
		},
		{
			name:   "unknown namespace falls back",
			ns:     "customdb",
			id:     "X1",
			wantNs: "customdb",
			wantID: "X1",
		},
		{
			name:   "registry synonym",
			ns:     "ClinicalTrials.gov",
			id:     "NCT00000001",
			wantNs: "clinicaltrials",
			wantID: "NCT00000001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, id := registry.Standardize(tt.ns, tt.id)
			if ns != tt.wantNs || id != tt.wantID {
				t.Errorf("Standardize(%q, %q) = (%q, %q), want (%q, %q)",
					tt.ns, tt.id, ns, id, tt.wantNs, tt.wantID)
			}
		})
	}
}

func TestStandardizeIsPure(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	ns1, id1 := registry.Standardize("MESH", "D003920")
	ns2, id2 := registry.Standardize("MESH", "D003920")
	if ns1 != ns2 || id1 != id2 {
		t.Errorf("Standardize not deterministic: (%q, %q) vs (%q, %q)", ns1, id1, ns2, id2)
	}
}

func TestPattern(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	tests := []struct {
		ns    string
		id    string
		match bool
	}{
		{"clinicaltrials", "NCT00000001", true},
		{"clinicaltrials", "NCT1", false},
		{"mesh", "D003920", true},
		{"mesh", "X003920", false},
		{"doid", "9352", true},
		{"doid", "abc", false},
		{"isrctn", "12345678", true},
	}
	for _, tt := range tests {
		re, ok := registry.Pattern(tt.ns)
		if !ok {
			t.Fatalf("Pattern(%q) not found", tt.ns)
		}
		if got := re.MatchString(tt.id); got != tt.match {
			t.Errorf("Pattern(%q).MatchString(%q) = %v, want %v", tt.ns, tt.id, got, tt.match)
		}
	}
}

func TestRecognizeTrialID(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	tests := []struct {
		trialID string
		wantNs  string
		wantOK  bool
	}{
		{"NCT00000001", "clinicaltrials", true},
		{"ISRCTN12345678", "isrctn", true},
		{"EUCTR2020-001038-36", "euclinicaltrials", true},
		{"JPRN-jRCT2080223456", "jrct", true},
		{"JPRN-UMIN000012345", "uminctr", true},
		{"ChiCTR2000029865", "chictr", true},
		{"XYZ123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.trialID, func(t *testing.T) {
			ns, ok := registry.RecognizeTrialID(tt.trialID)
			if ok != tt.wantOK || ns != tt.wantNs {
				t.Errorf("RecognizeTrialID(%q) = (%q, %v), want (%q, %v)",
					tt.trialID, ns, ok, tt.wantNs, tt.wantOK)
			}
		})
	}
}

func TestParse(t *testing.T) {
	ns, id, err := Parse("mesh:D003920")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if ns != "mesh" || id != "D003920" {
		t.Errorf("Parse() = (%q, %q), want (mesh, D003920)", ns, id)
	}

	ns, id, err = Parse("ctri:CTRI/2020/03/024413")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if ns != "ctri" || id != "CTRI/2020/03/024413" {
		t.Errorf("Parse() kept colon-free split wrong: (%q, %q)", ns, id)
	}

	if _, _, err := Parse("no-separator"); err == nil {
		t.Error("Parse() expected error for missing separator")
	}
}
