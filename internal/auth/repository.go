package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ UserStore = (*Repository)(nil)

// Create inserts a new member. The starting balance comes from the column default.
func (r *Repository) Create(ctx context.Context, in RegisterInput, passwordHash string) (*models.Profile, error) {
	p := models.Profile{Email: in.Email, Name: in.Name, Bio: in.Bio, Location: in.Location}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, bio, location)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, credit_balance, created_at
	`, in.Email, passwordHash, in.Name, in.Bio, in.Location).Scan(&p.ID, &p.CreditBalance, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByEmail returns the member and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Profile, string, error) {
	var p models.Profile
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, bio, location, credit_balance, created_at, password_hash
		FROM users WHERE email = $1
	`, email).Scan(&p.ID, &p.Email, &p.Name, &p.Bio, &p.Location, &p.CreditBalance, &p.CreatedAt, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &p, hash, nil
}
