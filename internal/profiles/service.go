package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/services"
)

const maxYearsExperience = 50

// Store is the profile and skill-listing persistence used by Service.
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListSkills(ctx context.Context, userID uuid.UUID) ([]models.SkillListing, error)
	AddSkillListing(ctx context.Context, l *models.SkillListing) error
}

// ListingInput is the body of a new skill listing.
type ListingInput struct {
	SkillName       string              `json:"skill_name"`
	Category        *string             `json:"category,omitempty"`
	Direction       models.Direction    `json:"type"`
	Proficiency     *models.Proficiency `json:"proficiency_level,omitempty"`
	YearsExperience *int                `json:"years_experience,omitempty"`
	Description     *string             `json:"description,omitempty"`
}

type Service interface {
	AddListing(ctx context.Context, userID uuid.UUID, in ListingInput) (*models.SkillListing, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.SkillListing, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type service struct {
	store Store
}

func NewService(store Store) *service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

// normalizeSkillName trims and collapses inner whitespace.
func normalizeSkillName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (in ListingInput) validate() error {
	if in.SkillName == "" {
		return fmt.Errorf("%w: skill_name is required", services.ErrValidation)
	}
	if !in.Direction.Valid() {
		return fmt.Errorf("%w: type must be offer or seek", services.ErrValidation)
	}
	if in.Proficiency != nil && !in.Proficiency.Valid() {
		return fmt.Errorf("%w: unknown proficiency_level %q", services.ErrValidation, *in.Proficiency)
	}
	if y := in.YearsExperience; y != nil && (*y < 0 || *y > maxYearsExperience) {
		return fmt.Errorf("%w: years_experience must be between 0 and %d", services.ErrValidation, maxYearsExperience)
	}
	return nil
}

// AddListing records that the user offers or seeks a skill. Skills are shared
// by case-insensitive name; a second listing for the same skill and direction
// is rejected with models.ErrDuplicateListing.
func (s *service) AddListing(ctx context.Context, userID uuid.UUID, in ListingInput) (*models.SkillListing, error) {
	in.SkillName = normalizeSkillName(in.SkillName)
	if err := in.validate(); err != nil {
		return nil, err
	}
	l := &models.SkillListing{
		UserID:          userID,
		SkillName:       in.SkillName,
		Category:        in.Category,
		Direction:       in.Direction,
		Proficiency:     in.Proficiency,
		YearsExperience: in.YearsExperience,
		Description:     in.Description,
	}
	if err := s.store.AddSkillListing(ctx, l); err != nil {
		if errors.Is(err, models.ErrDuplicateListing) {
			return nil, err
		}
		return nil, models.StoreError(err)
	}
	return l, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.SkillListing, error) {
	list, err := s.store.ListSkills(ctx, userID)
	if err != nil {
		return nil, models.StoreError(err)
	}
	if list == nil {
		list = []models.SkillListing{}
	}
	return list, nil
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, models.StoreError(err)
	}
	return p, nil
}
