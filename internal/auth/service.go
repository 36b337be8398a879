package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillswap/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingFields      = errors.New("email, password and name are required")
)

const DefaultTokenTTL = 24 * time.Hour

// RegisterInput carries the fields of a new member.
type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Bio      *string `json:"bio,omitempty"`
	Location *string `json:"location,omitempty"`
}

// UserStore persists members and their password hashes.
type UserStore interface {
	Create(ctx context.Context, in RegisterInput, passwordHash string) (*models.Profile, error)
	// GetByEmail returns (nil, "", nil) when no member has the email.
	GetByEmail(ctx context.Context, email string) (*models.Profile, string, error)
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

type service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(users UserStore, secret string, ttl time.Duration) *service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &service{users: users, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, ErrMissingFields
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p, err := s.users.Create(ctx, in, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, models.StoreError(err)
	}
	return p, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	p, hash, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", models.StoreError(err)
	}
	if p == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(p.ID)
}

func (s *service) issueToken(userID uuid.UUID) (string, error) {
	now := s.now()
	c := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the member ID carried by a valid, unexpired token.
func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	var c jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
