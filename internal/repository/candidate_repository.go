package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campaign-support/internal/domain"
)

// CandidateRepository persists candidate accounts.
type CandidateRepository interface {
	Create(ctx context.Context, candidate *domain.Candidate) error
	GetByID(ctx context.Context, id string) (*domain.Candidate, error)
	GetByEmail(ctx context.Context, email string) (*domain.Candidate, error)
}

type candidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository constructs repository.
func NewCandidateRepository(pool *pgxpool.Pool) CandidateRepository {
	return &candidateRepository{pool: pool}
}

func (r *candidateRepository) Create(ctx context.Context, candidate *domain.Candidate) error {
	const query = `
        INSERT INTO candidates (name, email, password_hash, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		candidate.Name,
		candidate.Email,
		candidate.PasswordHash,
		candidate.Status,
	).Scan(&candidate.ID, &candidate.CreatedAt, &candidate.UpdatedAt)
}

func (r *candidateRepository) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	const query = `
        SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM candidates WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *candidateRepository) GetByEmail(ctx context.Context, email string) (*domain.Candidate, error) {
	const query = `
        SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM candidates WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *candidateRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Candidate, error) {
	var candidate domain.Candidate
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&candidate.ID,
		&candidate.Name,
		&candidate.Email,
		&candidate.PasswordHash,
		&candidate.Status,
		&candidate.CreatedAt,
		&candidate.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &candidate, nil
}
