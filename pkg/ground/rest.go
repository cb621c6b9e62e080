package ground

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trialgraph/internal/util"
)

// RESTGrounder calls a gilda-style grounding web service over HTTP.
type RESTGrounder struct {
	baseURL    string
	maxRetries int
	client     *http.Client
}

// RESTGrounderParams configures a RESTGrounder.
type RESTGrounderParams struct {
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// NewRESTGrounder creates a grounding-service client.
func NewRESTGrounder(params RESTGrounderParams) *RESTGrounder {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RESTGrounder{
		baseURL:    params.BaseURL,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: timeout},
	}
}

type groundRequest struct {
	Text       string   `json:"text"`
	Context    string   `json:"context,omitempty"`
	Namespaces []string `json:"namespaces,omitempty"`
}

type groundMatch struct {
	Term struct {
		DB        string `json:"db"`
		ID        string `json:"id"`
		EntryName string `json:"entry_name"`
	} `json:"term"`
	Score float64 `json:"score"`
}

// Ground resolves text against the remote service. Transient failures are
// retried; an empty candidate list is a valid result, not an error.
func (g *RESTGrounder) Ground(ctx context.Context, text string, namespaces []string, contextText string) ([]Candidate, error) {
	payload, err := json.Marshal(groundRequest{
		Text:       text,
		Context:    contextText,
		Namespaces: namespaces,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode grounding request: %w", err)
	}

	matches, err := util.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context) ([]groundMatch, error) {
		return g.post(ctx, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("grounding request for %q failed: %w", text, err)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, Candidate{
			Namespace: m.Term.DB,
			ID:        m.Term.ID,
			Name:      m.Term.EntryName,
			Score:     m.Score,
		})
	}
	return candidates, nil
}

func (g *RESTGrounder) post(ctx context.Context, payload []byte) ([]groundMatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/ground", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("grounding service returned status %d: %s", res.StatusCode, body)
	}

	var matches []groundMatch
	if err := json.NewDecoder(res.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("failed to decode grounding response: %w", err)
	}
	return matches, nil
}
