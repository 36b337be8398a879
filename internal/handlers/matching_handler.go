package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/middleware"
	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/services"
)

// Matching is the match engine surface used by MatchHandler.
type Matching interface {
	FindMatches(ctx context.Context, subjectID uuid.UUID, f services.MatchFilters) ([]models.MatchResult, error)
	RecommendSkills(ctx context.Context, subjectID uuid.UUID) ([]string, error)
}

// MatchHandler serves /api/v1/matches endpoints. The caller is the subject.
type MatchHandler struct {
	Matcher Matching
	Logger  *slog.Logger
}

type matchesResponse struct {
	Matches []models.MatchResult `json:"matches"`
	Count   int                  `json:"count"`
}

// parseMatchFilters reads skill, type, min_rating and limit from the query string.
func parseMatchFilters(r *http.Request) (services.MatchFilters, string) {
	q := r.URL.Query()
	f := services.MatchFilters{SkillName: strings.TrimSpace(q.Get("skill"))}

	if t := q.Get("type"); t != "" {
		d := models.Direction(strings.ToLower(t))
		if !d.Valid() {
			return f, "type must be offer or seek"
		}
		f.Direction = &d
	}
	if v := q.Get("min_rating"); v != "" {
		mr, err := strconv.ParseFloat(v, 64)
		if err != nil || mr < 0 || mr > 5 {
			return f, "min_rating must be a number between 0 and 5"
		}
		f.MinRating = &mr
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, "limit must be a positive integer"
		}
		f.Limit = n
	}
	return f, ""
}

// FindMatches handles GET /api/v1/matches.
func (h *MatchHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	f, msg := parseMatchFilters(r)
	if msg != "" {
		badRequest(w, msg)
		return
	}
	matches, err := h.Matcher.FindMatches(r.Context(), userID, f)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Matches: matches, Count: len(matches)})
}

// Recommendations handles GET /api/v1/matches/recommendations.
func (h *MatchHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	skills, err := h.Matcher.RecommendSkills(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": skills})
}
