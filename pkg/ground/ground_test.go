package ground

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestRESTGrounderGround(t *testing.T) {
	var gotPath string
	var gotReq groundRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"term": {"db": "MESH", "id": "D003920", "entry_name": "Diabetes Mellitus"}, "score": 0.98},
			{"term": {"db": "doid", "id": "9351", "entry_name": "diabetes mellitus"}, "score": 0.72}
		]`))
	}))
	defer server.Close()

	grounder := NewRESTGrounder(RESTGrounderParams{BaseURL: server.URL})
	candidates, err := grounder.Ground(context.Background(), "diabetes", ConditionNamespaces, "A Trial of Metformin")
	if err != nil {
		t.Fatalf("Ground() error: %v", err)
	}

	if gotPath != "/ground" {
		t.Errorf("request path = %q, want /ground", gotPath)
	}
	if gotReq.Text != "diabetes" {
		t.Errorf("request text = %q", gotReq.Text)
	}
	if gotReq.Context != "A Trial of Metformin" {
		t.Errorf("request context = %q", gotReq.Context)
	}

	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	best := candidates[0]
	if best.Namespace != "MESH" || best.ID != "D003920" || best.Name != "Diabetes Mellitus" {
		t.Errorf("unexpected best candidate: %+v", best)
	}
	if best.Score != 0.98 {
		t.Errorf("best score = %v", best.Score)
	}
}

func TestRESTGrounderNoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	grounder := NewRESTGrounder(RESTGrounderParams{BaseURL: server.URL})
	candidates, err := grounder.Ground(context.Background(), "unknowable term", nil, "")
	if err != nil {
		t.Fatalf("Ground() error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(candidates))
	}
}

func TestRESTGrounderRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"term": {"db": "CHEBI", "id": "6801", "entry_name": "metformin"}, "score": 1.0}]`))
	}))
	defer server.Close()

	grounder := NewRESTGrounder(RESTGrounderParams{BaseURL: server.URL, MaxRetries: 3})
	candidates, err := grounder.Ground(context.Background(), "metformin", InterventionNamespaces, "")
	if err != nil {
		t.Fatalf("Ground() error after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
	if len(candidates) != 1 || candidates[0].ID != "6801" {
		t.Errorf("unexpected candidates: %+v", candidates)
	}
}

func TestRESTGrounderGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	grounder := NewRESTGrounder(RESTGrounderParams{BaseURL: server.URL, MaxRetries: 2})
	if _, err := grounder.Ground(context.Background(), "anything", nil, ""); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestLoadMeshTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.tsv")
	content := "D003920\tDiabetes Mellitus\nD008687\tMetformin\n\nmalformed line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write terms file: %v", err)
	}

	lookup, err := LoadMeshTerms(path)
	if err != nil {
		t.Fatalf("LoadMeshTerms() error: %v", err)
	}

	if name, ok := lookup.Name("D003920"); !ok || name != "Diabetes Mellitus" {
		t.Errorf("Name(D003920) = %q, %v", name, ok)
	}
	if _, ok := lookup.Name("D000000"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestLoadMeshTermsGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.tsv.gz")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	gz := gzip.NewWriter(file)
	if _, err := gz.Write([]byte("C025735\tascorbate\n")); err != nil {
		t.Fatalf("failed to write gzip content: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}

	lookup, err := LoadMeshTerms(path)
	if err != nil {
		t.Fatalf("LoadMeshTerms() error: %v", err)
	}
	if name, ok := lookup.Name("C025735"); !ok || name != "ascorbate" {
		t.Errorf("Name(C025735) = %q, %v", name, ok)
	}
}
