package repository

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/backend/internal/models"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

// RatingAggregate averages the user's visible reviews, rounded to one decimal.
func (r *ReviewRepo) RatingAggregate(ctx context.Context, userID uuid.UUID) (models.RatingAggregate, error) {
	var avg *float64
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT AVG(rating)::float8, COUNT(*)
		FROM reviews
		WHERE reviewee_id = $1 AND is_visible
	`, userID).Scan(&avg, &count)
	if err != nil {
		return models.RatingAggregate{}, err
	}
	agg := models.RatingAggregate{Count: count}
	if avg != nil {
		agg.Average = math.Round(*avg*10) / 10
	}
	return agg, nil
}
