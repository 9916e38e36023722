// Package profile stores applicant profiles so repeat requests can be
// pre-filled and generated artifacts can reference a consistent identity.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("profile not found")

type Profile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FullName      string    `json:"full_name"`
	Nationality   string    `json:"nationality"`
	Occupation    string    `json:"occupation,omitempty"`
	MaritalStatus string    `json:"marital_status,omitempty"`
	Employer      string    `json:"employer,omitempty"`
	PassportURL   string    `json:"passport_url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	UpdateField(ctx context.Context, userID, field, value string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) Save(ctx context.Context, p *Profile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(p.Nationality) == "" {
		return fmt.Errorf("nationality is required")
	}
	return s.repo.Upsert(ctx, p)
}

func (s *Service) SetPassportURL(ctx context.Context, userID, url string) error {
	return s.repo.UpdateField(ctx, userID, "passport_url", url)
}
