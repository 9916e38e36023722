// Package settings holds the runtime-tunable knobs of the generation
// pipeline: API keys and retrieval/generation defaults that operators adjust
// without a redeploy.
package settings

import (
	"context"
	"fmt"
)

type Settings struct {
	ID                 int     `json:"-"`
	GeminiAPIKey       string  `json:"gemini_api_key"`
	RerankProvider     string  `json:"rerank_provider"`
	RerankAPIKey       string  `json:"rerank_api_key"`
	RetrievalTopK      int     `json:"retrieval_top_k"`
	RetrievalMinScore  float32 `json:"retrieval_min_score"`
	DefaultTemperature float32 `json:"default_temperature"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	if set.RetrievalMinScore < 0 || set.RetrievalMinScore > 1 {
		return fmt.Errorf("retrieval_min_score must be within [0,1]")
	}
	if set.DefaultTemperature < 0 || set.DefaultTemperature > 1 {
		return fmt.Errorf("default_temperature must be within [0,1]")
	}
	if set.RetrievalTopK <= 0 {
		return fmt.Errorf("retrieval_top_k must be positive")
	}
	return s.repo.Update(ctx, set)
}
