package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/weaviate/weaviate/entities/models"

	"visamate/backend/internal/vector"
)

type flakySchemaClient struct {
	failures int
	calls    int
	created  *models.Class
	class    *models.Class
}

func (f *flakySchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return false, errors.New("connection refused")
	}
	return f.class != nil, nil
}

func (f *flakySchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	f.created = class
	return nil
}

func (f *flakySchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return f.class, nil
}

func (f *flakySchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return nil
}

func TestEnsureSchemaWithRetry_RecoversFromTransientFailure(t *testing.T) {
	client := &flakySchemaClient{failures: 2}

	err := ensureSchemaWithRetry(context.Background(), client, 3072, 5, time.Millisecond)
	assert.NoError(t, err)
	assert.NotNil(t, client.created)
	assert.Equal(t, 3, client.calls)
}

func TestEnsureSchemaWithRetry_GivesUpAfterAttempts(t *testing.T) {
	client := &flakySchemaClient{failures: 100}

	err := ensureSchemaWithRetry(context.Background(), client, 3072, 3, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 3, client.calls)
}

func TestEnsureSchemaWithRetry_DimensionMismatchIsFatalImmediately(t *testing.T) {
	client := &flakySchemaClient{
		class: &models.Class{
			Class:       vector.ClassName,
			Description: "An embedded prior visa application case (dim=768)",
		},
	}

	err := ensureSchemaWithRetry(context.Background(), client, 3072, 5, time.Millisecond)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Equal(t, 1, client.calls, "a permanent mismatch must not be retried")
}
