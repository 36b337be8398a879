package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/middleware"
	"github.com/skillswap/backend/internal/profiles"
)

// ProfileHandler serves /api/v1/profiles endpoints.
type ProfileHandler struct {
	Profiles profiles.Service
	Logger   *slog.Logger
}

// GetProfile handles GET /api/v1/profiles/{id}.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, "invalid profile id")
		return
	}
	p, err := h.Profiles.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListMySkills handles GET /api/v1/profiles/me/skills.
func (h *ProfileHandler) ListMySkills(w http.ResponseWriter, r *http.Request) {
	list, err := h.Profiles.ListMine(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": list})
}

// AddSkill handles POST /api/v1/profiles/me/skills.
func (h *ProfileHandler) AddSkill(w http.ResponseWriter, r *http.Request) {
	var in profiles.ListingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	l, err := h.Profiles.AddListing(r.Context(), middleware.UserIDFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}
