package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Reranker scores each candidate against query with a cross-encoder
// (§4.10 step 7: "ms-marco-MiniLM-L-12-v2 or equivalent"). Any
// implementation with an equivalent interface is acceptable — the
// invariant the pipeline depends on is a stable sort on ties.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// rerank scores hits[:min(len(hits), RerankTopK)] and stable-sorts that
// prefix by the new score, leaving any hits beyond K2 in their fused
// order untouched at the tail.
func rerank(ctx context.Context, reranker Reranker, query string, hits []ScoredHit) ([]ScoredHit, error) {
	if reranker == nil || len(hits) == 0 {
		return hits, nil
	}

	head := hits
	tail := []ScoredHit(nil)
	if len(hits) > RerankTopK {
		head = hits[:RerankTopK]
		tail = hits[RerankTopK:]
	}

	texts := make([]string, len(head))
	for i, h := range head {
		texts[i] = h.Payload.Subject + "\n" + h.Payload.SummaryText
	}

	scores, err := reranker.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("search: rerank: %w", err)
	}
	for i := range head {
		if i < len(scores) {
			head[i].RerankScore = scores[i]
		}
	}

	sort.SliceStable(head, func(i, j int) bool {
		return head[i].RerankScore > head[j].RerankScore
	})

	return append(head, tail...), nil
}

// HTTPReranker calls an external cross-encoder inference endpoint over
// HTTP, grounded on the same http.Client + context-carrying-request
// pattern the platform adapter uses for Freshdesk.
type HTTPReranker struct {
	baseURL string
	client  *http.Client
}

// NewHTTPReranker builds a reranker client against a cross-encoder
// inference service's /rerank endpoint. client defaults to
// &http.Client{Timeout: 10 * time.Second} if nil.
func NewHTTPReranker(baseURL string, client *http.Client) *HTTPReranker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPReranker{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *HTTPReranker) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Candidates: candidates})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: rerank service returned %d: %s", resp.StatusCode, string(data))
	}

	var out rerankResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("search: decode rerank response: %w", err)
	}
	return out.Scores, nil
}
