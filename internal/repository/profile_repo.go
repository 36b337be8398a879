package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `id, email, name, bio, location, credit_balance, created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Bio, &p.Location, &p.CreditBalance, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Skills = []models.SkillListing{}
	return &p, nil
}

// GetProfile returns the user with its skill listings, or models.ErrNotFound.
func (r *ProfileRepo) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachSkills(ctx, []*models.Profile{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns every user, oldest first.
func (r *ProfileRepo) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return r.queryProfiles(ctx, `SELECT `+profileColumns+` FROM users ORDER BY created_at, id`)
}

// GetProfiles returns the users with the given IDs, oldest first. Unknown IDs are skipped.
func (r *ProfileRepo) GetProfiles(ctx context.Context, ids []uuid.UUID) ([]*models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryProfiles(ctx, `SELECT `+profileColumns+` FROM users WHERE id = ANY($1) ORDER BY created_at, id`, ids)
}

func (r *ProfileRepo) queryProfiles(ctx context.Context, sql string, args ...any) ([]*models.Profile, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachSkills(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

const listingSelect = `
	SELECT us.id, us.user_id, s.name, s.category, us.type, us.proficiency_level,
	       us.years_experience, us.description, us.created_at
	FROM user_skills us
	JOIN skills s ON s.id = us.skill_id`

func scanListing(row pgx.Row) (models.SkillListing, error) {
	var l models.SkillListing
	err := row.Scan(&l.ID, &l.UserID, &l.SkillName, &l.Category, &l.Direction, &l.Proficiency,
		&l.YearsExperience, &l.Description, &l.CreatedAt)
	return l, err
}

// attachSkills loads listings for all profiles in one query.
func (r *ProfileRepo) attachSkills(ctx context.Context, profiles []*models.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Profile, len(profiles))
	ids := make([]uuid.UUID, 0, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	rows, err := r.pool.Query(ctx, listingSelect+` WHERE us.user_id = ANY($1) ORDER BY us.created_at, us.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return err
		}
		if p, ok := byID[l.UserID]; ok {
			p.Skills = append(p.Skills, l)
		}
	}
	return rows.Err()
}

// ListSkills returns one user's listings in creation order.
func (r *ProfileRepo) ListSkills(ctx context.Context, userID uuid.UUID) ([]models.SkillListing, error) {
	rows, err := r.pool.Query(ctx, listingSelect+` WHERE us.user_id = $1 ORDER BY us.created_at, us.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SkillListing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// FindUsersBySkillSubstring returns distinct users holding a listing whose
// skill name contains text, case-insensitively.
func (r *ProfileRepo) FindUsersBySkillSubstring(ctx context.Context, text string, direction *models.Direction) ([]uuid.UUID, error) {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	var dir *string
	if direction != nil {
		d := string(*direction)
		dir = &d
	}
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT us.user_id
		FROM user_skills us
		JOIN skills s ON s.id = us.skill_id
		WHERE lower(s.name) LIKE $1 ESCAPE '\'
		  AND ($2::text IS NULL OR us.type = $2)
	`, pattern, dir)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// MostOfferedSkills ranks skills by number of offer listings.
func (r *ProfileRepo) MostOfferedSkills(ctx context.Context, topN int) ([]models.SkillCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.name, COUNT(us.id) AS offers
		FROM skills s
		JOIN user_skills us ON us.skill_id = s.id AND us.type = 'offer'
		GROUP BY s.id, s.name
		ORDER BY offers DESC, s.name ASC
		LIMIT $1
	`, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SkillCount
	for rows.Next() {
		var sc models.SkillCount
		if err := rows.Scan(&sc.SkillName, &sc.Count); err != nil {
			return nil, err
		}
		list = append(list, sc)
	}
	return list, rows.Err()
}

// AddSkillListing upserts the skill by case-insensitive name and inserts the
// listing. A second listing for the same skill and direction returns
// models.ErrDuplicateListing.
func (r *ProfileRepo) AddSkillListing(ctx context.Context, l *models.SkillListing) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var skillID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO skills (name, category) VALUES ($1, $2)
			ON CONFLICT (lower(name)) DO UPDATE SET category = COALESCE(skills.category, EXCLUDED.category)
			RETURNING id, name, category
		`, strings.TrimSpace(l.SkillName), l.Category).Scan(&skillID, &l.SkillName, &l.Category)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO user_skills (user_id, skill_id, type, proficiency_level, years_experience, description)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, l.UserID, skillID, l.Direction, l.Proficiency, l.YearsExperience, l.Description).Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return models.ErrDuplicateListing
			}
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return models.ErrNotFound
			}
			return err
		}
		return nil
	})
}
