// Package retrieval finds prior visa cases similar to the current request.
// It is an enhancement layer: the generation pipeline works without it, so
// callers treat failures here as warnings rather than fatal errors.
package retrieval

import (
	"context"
	"time"

	"visamate/backend/internal/settings"
)

// SimilarCase is one retrieved historical example. Score is the cosine
// similarity to the query, computed at query time.
type SimilarCase struct {
	CaseID         string                 `json:"case_id"`
	Content        string                 `json:"content"`
	Score          float32                `json:"score"`
	FieldsIncluded []string               `json:"fields_included,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore returns cases ordered by descending similarity, already
// filtered to score >= minScore.
type VectorStore interface {
	QuerySimilar(ctx context.Context, vector []float32, topK int, minScore float32) ([]SimilarCase, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]int, error)
}

type SettingsProvider interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Service struct {
	embedder        Embedder
	store           VectorStore
	reranker        Reranker
	settings        SettingsProvider
	logger          *QueryLogger
	defaultTopK     int
	defaultMinScore float32
	embedTimeout    time.Duration
	queryTimeout    time.Duration
}

func NewService(e Embedder, s VectorStore, r Reranker, set SettingsProvider, l *QueryLogger, defaultTopK int, defaultMinScore float32, embedTimeout, queryTimeout time.Duration) *Service {
	if embedTimeout <= 0 {
		embedTimeout = 30 * time.Second
	}
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Service{
		embedder:        e,
		store:           s,
		reranker:        r,
		settings:        set,
		logger:          l,
		defaultTopK:     defaultTopK,
		defaultMinScore: defaultMinScore,
		embedTimeout:    embedTimeout,
		queryTimeout:    queryTimeout,
	}
}

// Similar embeds the query and returns the closest prior cases. Retrieval
// parameters come from runtime settings, falling back to the configured
// defaults when settings are unavailable.
func (s *Service) Similar(ctx context.Context, query string) ([]SimilarCase, error) {
	start := time.Now()
	var finalCases []SimilarCase
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			s.logger.Log(QueryLogEntry{
				Query:      query,
				NumResults: len(finalCases),
				Duration:   time.Since(start),
			})
		}
	}()

	topK := s.defaultTopK
	minScore := s.defaultMinScore
	if s.settings != nil {
		if cfg, serr := s.settings.Get(ctx); serr == nil && cfg != nil {
			if cfg.RetrievalTopK > 0 {
				topK = cfg.RetrievalTopK
			}
			minScore = cfg.RetrievalMinScore
		}
	}

	embedCtx, cancelEmbed := context.WithTimeout(ctx, s.embedTimeout)
	vec, err := s.embedder.Embed(embedCtx, query)
	cancelEmbed()
	if err != nil {
		return nil, err
	}

	queryCtx, cancelQuery := context.WithTimeout(ctx, s.queryTimeout)
	cases, err := s.store.QuerySimilar(queryCtx, vec, topK, minScore)
	cancelQuery()
	if err != nil {
		return nil, err
	}

	if s.reranker != nil && len(cases) > 1 {
		contents := make([]string, len(cases))
		for i, c := range cases {
			contents[i] = c.Content
		}

		indices, rerr := s.reranker.Rerank(ctx, query, contents)
		if rerr == nil {
			reranked := make([]SimilarCase, 0, len(indices))
			for _, idx := range indices {
				if idx < len(cases) {
					reranked = append(reranked, cases[idx])
				}
			}
			finalCases = reranked
			return reranked, nil
		}
		// Reranking is best effort; fall through with the vector order.
	}

	finalCases = cases
	return cases, nil
}
