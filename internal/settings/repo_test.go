package settings

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "gemini_api_key", "rerank_provider", "rerank_api_key", "retrieval_top_k", "retrieval_min_score", "default_temperature"}).
		AddRow(1, "key", "jina", "rkey", 5, 0.7, 0.7)
	mock.ExpectQuery("SELECT id, gemini_api_key").WillReturnRows(rows)

	repo := NewPostgresRepo(db)
	s, err := repo.Get(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "key", s.GeminiAPIKey)
	assert.Equal(t, 5, s.RetrievalTopK)
	assert.InDelta(t, 0.7, s.RetrievalMinScore, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE settings").
		WithArgs("key", "jina", "rkey", 10, float64(0.5), float64(0.25)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepo(db)
	err = repo.Update(t.Context(), &Settings{
		GeminiAPIKey:       "key",
		RerankProvider:     "jina",
		RerankAPIKey:       "rkey",
		RetrievalTopK:      10,
		RetrievalMinScore:  0.5,
		DefaultTemperature: 0.25,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Update_Validation(t *testing.T) {
	svc := NewService(nil)

	tests := []struct {
		name string
		s    Settings
	}{
		{name: "min score out of range", s: Settings{RetrievalTopK: 5, RetrievalMinScore: 1.2, DefaultTemperature: 0.5}},
		{name: "temperature out of range", s: Settings{RetrievalTopK: 5, RetrievalMinScore: 0.5, DefaultTemperature: 2}},
		{name: "non-positive top k", s: Settings{RetrievalTopK: 0, RetrievalMinScore: 0.5, DefaultTemperature: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, svc.Update(t.Context(), &tt.s))
		})
	}
}
