package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// updatableColumns whitelists the columns UpdateField may touch; the field
// name reaches us from code, but interpolating anything else into SQL is
// still off the table.
var updatableColumns = map[string]bool{
	"full_name":      true,
	"nationality":    true,
	"occupation":     true,
	"marital_status": true,
	"employer":       true,
	"passport_url":   true,
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	query := `SELECT id, user_id, full_name, nationality, occupation, marital_status, employer, passport_url, updated_at
		FROM profiles WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Nationality, &p.Occupation,
		&p.MaritalStatus, &p.Employer, &p.PassportURL, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, p *Profile) error {
	query := `INSERT INTO profiles (user_id, full_name, nationality, occupation, marital_status, employer, passport_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			nationality = EXCLUDED.nationality,
			occupation = EXCLUDED.occupation,
			marital_status = EXCLUDED.marital_status,
			employer = EXCLUDED.employer,
			passport_url = EXCLUDED.passport_url,
			updated_at = NOW()
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		p.UserID, p.FullName, p.Nationality, p.Occupation,
		p.MaritalStatus, p.Employer, p.PassportURL,
	).Scan(&p.ID)
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepo) UpdateField(ctx context.Context, userID, field, value string) error {
	if !updatableColumns[field] {
		return fmt.Errorf("field %q is not updatable", field)
	}
	query := fmt.Sprintf(`UPDATE profiles SET %s = $1, updated_at = NOW() WHERE user_id = $2`, field)
	res, err := r.db.ExecContext(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
