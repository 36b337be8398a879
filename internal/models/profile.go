package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultStartingCredits is granted to every new user on registration.
var DefaultStartingCredits = decimal.NewFromInt(10)

// Direction says whether a user offers a skill or seeks to learn it.
type Direction string

const (
	DirectionOffer Direction = "offer"
	DirectionSeek  Direction = "seek"
)

func (d Direction) Valid() bool {
	return d == DirectionOffer || d == DirectionSeek
}

// Proficiency is an ordered skill tier.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyExpert       Proficiency = "expert"
)

// Ordinal maps the tier to 1..4. Unknown tiers return 0.
func (p Proficiency) Ordinal() int {
	switch p {
	case ProficiencyBeginner:
		return 1
	case ProficiencyIntermediate:
		return 2
	case ProficiencyAdvanced:
		return 3
	case ProficiencyExpert:
		return 4
	}
	return 0
}

func (p Proficiency) Valid() bool { return p.Ordinal() > 0 }

type Profile struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email,omitempty"`
	Name          string          `json:"name"`
	Bio           *string         `json:"bio,omitempty"`
	Location      *string         `json:"location,omitempty"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	CreatedAt     time.Time       `json:"created_at"`
	Skills        []SkillListing  `json:"skills"`
}

type SkillListing struct {
	ID              uuid.UUID    `json:"id"`
	UserID          uuid.UUID    `json:"user_id"`
	SkillName       string       `json:"skill_name"`
	Category        *string      `json:"category,omitempty"`
	Direction       Direction    `json:"type"`
	Proficiency     *Proficiency `json:"proficiency_level,omitempty"`
	YearsExperience *int         `json:"years_experience,omitempty"`
	Description     *string      `json:"description,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// SkillCount is one row of the platform-wide most-offered skills ranking.
type SkillCount struct {
	SkillName string `json:"skill_name"`
	Count     int    `json:"count"`
}
