package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/models"
)

// Point weights for ScoreMatch.
const (
	complementaryPoints    = 20
	commonPoints           = 10
	directionMismatchBonus = 15
	levelGapBonus          = 5
	ratingWeight           = 15.0
	activityCap            = 10.0
	activeMemberBalance    = 20.0
	completeProfileMin     = 8
)

const (
	DefaultMatchLimit   = 10
	MaxMatchLimit       = 100
	recommendationPool  = 20
	recommendationLimit = 5
)

// ProfileStore is the read side of profiles and skill listings used for matching.
type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	GetProfiles(ctx context.Context, ids []uuid.UUID) ([]*models.Profile, error)
	FindUsersBySkillSubstring(ctx context.Context, text string, direction *models.Direction) ([]uuid.UUID, error)
	MostOfferedSkills(ctx context.Context, topN int) ([]models.SkillCount, error)
}

// ReviewStore exposes rating aggregates over visible reviews.
type ReviewStore interface {
	RatingAggregate(ctx context.Context, userID uuid.UUID) (models.RatingAggregate, error)
}

// MatchFilters narrows the candidate pool for FindMatches.
type MatchFilters struct {
	SkillName string
	Direction *models.Direction
	MinRating *float64
	Limit     int
}

// Matcher ranks other users against a subject user.
type Matcher struct {
	Profiles     ProfileStore
	Reviews      ReviewStore
	Logger       *slog.Logger
	DefaultLimit int
}

// NewMatcher returns a new Matcher.
func NewMatcher(profiles ProfileStore, reviews ReviewStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{Profiles: profiles, Reviews: reviews, Logger: logger, DefaultLimit: DefaultMatchLimit}
}

// skillSet holds lower-cased skill names in first-seen order with their display casing.
type skillSet struct {
	order   []string
	display map[string]string
}

func newSkillSet(listings []models.SkillListing, dir models.Direction) skillSet {
	s := skillSet{display: make(map[string]string)}
	for _, l := range listings {
		if l.Direction != dir {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(l.SkillName))
		if key == "" {
			continue
		}
		if _, ok := s.display[key]; ok {
			continue
		}
		s.display[key] = l.SkillName
		s.order = append(s.order, key)
	}
	return s
}

func (s skillSet) has(key string) bool {
	_, ok := s.display[key]
	return ok
}

// intersect walks a in order and keeps names also in b, rendered with
// the casing stored in from.
func intersect(a, b, from skillSet) []string {
	var out []string
	for _, k := range a.order {
		if b.has(k) {
			out = append(out, from.display[k])
		}
	}
	return out
}

// appendUnique adds names not already present, comparing case-insensitively.
func appendUnique(dst []string, names ...string) []string {
	for _, n := range names {
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, n) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, n)
		}
	}
	return dst
}

func tierOrdinal(p *models.Proficiency) int {
	if p == nil || !p.Valid() {
		return models.ProficiencyIntermediate.Ordinal()
	}
	return p.Ordinal()
}

// ScoreMatch computes how well candidate fits subject. It performs no I/O and
// never fails: missing data contributes nothing. The result is directional,
// so ScoreMatch(a, b) and ScoreMatch(b, a) may differ.
func ScoreMatch(subject, candidate *models.Profile, rating models.RatingAggregate) models.MatchResult {
	res := models.MatchResult{
		User:                *candidate,
		Reasons:             []string{},
		CommonSkills:        []string{},
		ComplementarySkills: []string{},
	}
	score := 0.0

	subjectOffers := newSkillSet(subject.Skills, models.DirectionOffer)
	subjectSeeks := newSkillSet(subject.Skills, models.DirectionSeek)
	candidateOffers := newSkillSet(candidate.Skills, models.DirectionOffer)
	candidateSeeks := newSkillSet(candidate.Skills, models.DirectionSeek)

	// Complementary: one side seeks what the other offers.
	wantsFromCandidate := intersect(subjectSeeks, candidateOffers, candidateOffers)
	wantsFromSubject := intersect(candidateSeeks, subjectOffers, subjectOffers)
	if len(wantsFromCandidate) > 0 {
		score += float64(complementaryPoints * len(wantsFromCandidate))
		res.Reasons = append(res.Reasons, "They can teach you: "+strings.Join(wantsFromCandidate, ", "))
		res.ComplementarySkills = appendUnique(res.ComplementarySkills, wantsFromCandidate...)
	}
	if len(wantsFromSubject) > 0 {
		score += float64(complementaryPoints * len(wantsFromSubject))
		res.Reasons = append(res.Reasons, "You can teach them: "+strings.Join(wantsFromSubject, ", "))
		res.ComplementarySkills = appendUnique(res.ComplementarySkills, wantsFromSubject...)
	}

	// Common: both offer or both seek.
	commonOffered := intersect(subjectOffers, candidateOffers, subjectOffers)
	commonSought := intersect(subjectSeeks, candidateSeeks, subjectSeeks)
	if len(commonOffered) > 0 {
		score += float64(commonPoints * len(commonOffered))
		res.Reasons = append(res.Reasons, "You both teach: "+strings.Join(commonOffered, ", "))
		res.CommonSkills = appendUnique(res.CommonSkills, commonOffered...)
	}
	if len(commonSought) > 0 {
		score += float64(commonPoints * len(commonSought))
		res.Reasons = append(res.Reasons, "You both want to learn: "+strings.Join(commonSought, ", "))
		res.CommonSkills = appendUnique(res.CommonSkills, commonSought...)
	}

	score += float64(skillLevelScore(subject.Skills, candidate.Skills))

	if rating.Rated() {
		score += rating.Average / 5 * ratingWeight
		switch {
		case rating.Average >= 4.5:
			res.Reasons = append(res.Reasons, "Highly rated by community")
		case rating.Average >= 4.0:
			res.Reasons = append(res.Reasons, "Well rated by community")
		}
		avg, count := rating.Average, rating.Count
		res.Rating = &avg
		res.ReviewCount = &count
	}

	completeness := profileCompleteness(candidate)
	score += float64(completeness)
	if completeness >= completeProfileMin {
		res.Reasons = append(res.Reasons, "Complete profile")
	}

	balance := candidate.CreditBalance.InexactFloat64()
	if balance > 0 {
		score += math.Min(balance, activityCap)
	}
	if balance >= activeMemberBalance {
		res.Reasons = append(res.Reasons, "Active community member")
	}

	res.Score = int(math.Round(score))
	return res
}

// skillLevelScore pairs each subject listing with the first candidate listing
// of the same name.
func skillLevelScore(subject, candidate []models.SkillListing) int {
	total := 0
	for _, s := range subject {
		for _, c := range candidate {
			if !strings.EqualFold(strings.TrimSpace(s.SkillName), strings.TrimSpace(c.SkillName)) {
				continue
			}
			if s.Direction != c.Direction {
				total += directionMismatchBonus
			}
			gap := tierOrdinal(s.Proficiency) - tierOrdinal(c.Proficiency)
			if gap < 0 {
				gap = -gap
			}
			if gap == 1 || gap == 2 {
				total += levelGapBonus
			}
			break
		}
	}
	return total
}

func profileCompleteness(p *models.Profile) int {
	n := 0
	if strings.TrimSpace(p.Name) != "" {
		n += 2
	}
	if p.Bio != nil && strings.TrimSpace(*p.Bio) != "" {
		n += 3
	}
	if p.Location != nil && strings.TrimSpace(*p.Location) != "" {
		n += 2
	}
	if len(p.Skills) > 0 {
		n += 3
	}
	return n
}

func (m *Matcher) limit(requested int) int {
	if requested <= 0 {
		requested = m.DefaultLimit
		if requested <= 0 {
			requested = DefaultMatchLimit
		}
	}
	if requested > MaxMatchLimit {
		return MaxMatchLimit
	}
	return requested
}

// candidatePool returns the profiles to score, before the subject is excluded.
func (m *Matcher) candidatePool(ctx context.Context, f MatchFilters) ([]*models.Profile, error) {
	text := strings.TrimSpace(f.SkillName)
	if text == "" {
		return m.Profiles.ListProfiles(ctx)
	}
	ids, err := m.Profiles.FindUsersBySkillSubstring(ctx, text, f.Direction)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return m.Profiles.GetProfiles(ctx, ids)
}

// FindMatches scores every candidate in the pool against the subject and
// returns the best ones, highest score first. Equal scores are ordered by
// candidate ID ascending.
func (m *Matcher) FindMatches(ctx context.Context, subjectID uuid.UUID, f MatchFilters) ([]models.MatchResult, error) {
	subject, err := m.Profiles.GetProfile(ctx, subjectID)
	if err != nil {
		return nil, models.StoreError(err)
	}
	pool, err := m.candidatePool(ctx, f)
	if err != nil {
		return nil, models.StoreError(err)
	}

	results := make([]models.MatchResult, 0, len(pool))
	for _, c := range pool {
		if c.ID == subject.ID {
			continue
		}
		rating, err := m.Reviews.RatingAggregate(ctx, c.ID)
		if err != nil {
			return nil, models.StoreError(err)
		}
		// An unrated candidate is never excluded by MinRating.
		if f.MinRating != nil && rating.Rated() && rating.Average < *f.MinRating {
			continue
		}
		results = append(results, ScoreMatch(subject, c, rating))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].User.ID.String() < results[j].User.ID.String()
	})

	if n := m.limit(f.Limit); len(results) > n {
		results = results[:n]
	}
	m.Logger.Debug("matches computed", "user_id", subjectID, "pool", len(pool), "returned", len(results))
	return results, nil
}

// RecommendSkills suggests up to five popular offered skills the subject
// does not list yet.
func (m *Matcher) RecommendSkills(ctx context.Context, subjectID uuid.UUID) ([]string, error) {
	subject, err := m.Profiles.GetProfile(ctx, subjectID)
	if err != nil {
		return nil, models.StoreError(err)
	}
	popular, err := m.Profiles.MostOfferedSkills(ctx, recommendationPool)
	if err != nil {
		m.Logger.Warn("most offered skills lookup failed", "user_id", subjectID, "error", err)
		return nil, models.StoreError(err)
	}

	own := make(map[string]bool, len(subject.Skills))
	for _, l := range subject.Skills {
		own[strings.ToLower(strings.TrimSpace(l.SkillName))] = true
	}
	out := make([]string, 0, recommendationLimit)
	for _, sc := range popular {
		if own[strings.ToLower(strings.TrimSpace(sc.SkillName))] {
			continue
		}
		out = append(out, sc.SkillName)
		if len(out) == recommendationLimit {
			break
		}
	}
	return out, nil
}
