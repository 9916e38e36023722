package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, gemini_api_key, rerank_provider, rerank_api_key, retrieval_top_k, retrieval_min_score, default_temperature FROM settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.GeminiAPIKey, &s.RerankProvider, &s.RerankAPIKey, &s.RetrievalTopK, &s.RetrievalMinScore, &s.DefaultTemperature)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `
		UPDATE settings
		SET gemini_api_key = $1, rerank_provider = $2, rerank_api_key = $3, retrieval_top_k = $4, retrieval_min_score = $5, default_temperature = $6, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query, s.GeminiAPIKey, s.RerankProvider, s.RerankAPIKey, s.RetrievalTopK, s.RetrievalMinScore, s.DefaultTemperature)
	return err
}
