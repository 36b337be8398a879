package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/models"
)

// JSONCache is the subset of cache.Redis used by the read-through decorators.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RatingSource interface {
	RatingAggregate(ctx context.Context, userID uuid.UUID) (models.RatingAggregate, error)
}

// CachedReviews serves rating aggregates from the cache when present.
// Reviews have no write path here, so entries expire by TTL.
type CachedReviews struct {
	next  RatingSource
	cache JSONCache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedReviews(next RatingSource, cache JSONCache, ttl time.Duration, log *slog.Logger) *CachedReviews {
	if log == nil {
		log = slog.Default()
	}
	return &CachedReviews{next: next, cache: cache, ttl: ttl, log: log}
}

func ratingKey(userID uuid.UUID) string { return "rating:" + userID.String() }

func (c *CachedReviews) RatingAggregate(ctx context.Context, userID uuid.UUID) (models.RatingAggregate, error) {
	key := ratingKey(userID)
	var agg models.RatingAggregate
	if found, err := c.cache.GetJSON(ctx, key, &agg); err != nil {
		c.log.Debug("rating cache read failed", "key", key, "error", err)
	} else if found {
		return agg, nil
	}
	agg, err := c.next.RatingAggregate(ctx, userID)
	if err != nil {
		return agg, err
	}
	if err := c.cache.SetJSON(ctx, key, agg, c.ttl); err != nil {
		c.log.Debug("rating cache write failed", "key", key, "error", err)
	}
	return agg, nil
}

type PopularitySource interface {
	MostOfferedSkills(ctx context.Context, topN int) ([]models.SkillCount, error)
	AddSkillListing(ctx context.Context, l *models.SkillListing) error
}

// CachedProfiles embeds the profile repository and caches the most-offered
// skills ranking, which every recommendation request reads.
type CachedProfiles struct {
	*ProfileRepo
	popularity PopularitySource
	cache      JSONCache
	ttl        time.Duration
	log        *slog.Logger
	topNs      []int
}

func NewCachedProfiles(repo *ProfileRepo, cache JSONCache, ttl time.Duration, log *slog.Logger) *CachedProfiles {
	return newCachedProfiles(repo, repo, cache, ttl, log)
}

func newCachedProfiles(repo *ProfileRepo, src PopularitySource, cache JSONCache, ttl time.Duration, log *slog.Logger) *CachedProfiles {
	if log == nil {
		log = slog.Default()
	}
	return &CachedProfiles{ProfileRepo: repo, popularity: src, cache: cache, ttl: ttl, log: log, topNs: []int{20}}
}

func popularKey(topN int) string { return fmt.Sprintf("skills:most_offered:%d", topN) }

func (c *CachedProfiles) MostOfferedSkills(ctx context.Context, topN int) ([]models.SkillCount, error) {
	key := popularKey(topN)
	var list []models.SkillCount
	if found, err := c.cache.GetJSON(ctx, key, &list); err != nil {
		c.log.Debug("popular skills cache read failed", "key", key, "error", err)
	} else if found {
		return list, nil
	}
	list, err := c.popularity.MostOfferedSkills(ctx, topN)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, list, c.ttl); err != nil {
		c.log.Debug("popular skills cache write failed", "key", key, "error", err)
	}
	return list, nil
}

// AddSkillListing writes through and drops the cached ranking when an offer
// listing changes skill popularity.
func (c *CachedProfiles) AddSkillListing(ctx context.Context, l *models.SkillListing) error {
	if err := c.popularity.AddSkillListing(ctx, l); err != nil {
		return err
	}
	if l.Direction == models.DirectionOffer {
		keys := make([]string, 0, len(c.topNs))
		for _, n := range c.topNs {
			keys = append(keys, popularKey(n))
		}
		if err := c.cache.Delete(ctx, keys...); err != nil {
			c.log.Warn("popular skills cache invalidation failed", "error", err)
		}
	}
	return nil
}
