package auth_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamate/backend/internal/auth"
)

func hashOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func TestPostgresVerifier_Verify(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	v := auth.NewPostgresVerifier(db)

	mock.ExpectQuery("SELECT user_id FROM auth_tokens").
		WithArgs(hashOf("secret-token")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

	userID, err := v.Verify(context.Background(), "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresVerifier_Verify_Unknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	v := auth.NewPostgresVerifier(db)

	mock.ExpectQuery("SELECT user_id FROM auth_tokens").
		WithArgs(hashOf("bad")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPostgresVerifier_Verify_Empty(t *testing.T) {
	v := auth.NewPostgresVerifier(nil)
	_, err := v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

type staticVerifier struct{ userID string }

func (s staticVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "good" {
		return s.userID, nil
	}
	return "", auth.ErrInvalidToken
}

func TestRequireAuth(t *testing.T) {
	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.UserID(r.Context())
	})
	handler := auth.RequireAuth(staticVerifier{userID: "u1"})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", gotUser)
}

func TestRequireAuth_Rejects(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	handler := auth.RequireAuth(staticVerifier{})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}
