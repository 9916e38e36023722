// Package auth verifies API tokens for the write-side endpoints.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier checks a bearer token and returns the owning user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// PostgresVerifier looks tokens up by their SHA-256 hash; plaintext tokens
// are never stored.
type PostgresVerifier struct {
	db *sql.DB
}

func NewPostgresVerifier(db *sql.DB) *PostgresVerifier {
	return &PostgresVerifier{db: db}
}

func (v *PostgresVerifier) Verify(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}

	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])

	var userID string
	query := `SELECT user_id FROM auth_tokens WHERE token_hash = $1 AND revoked_at IS NULL`
	err := v.db.QueryRowContext(ctx, query, hash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
