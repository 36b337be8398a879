package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/handlers"
	"github.com/skillswap/backend/internal/services"
)

type stubTokens struct{}

func (stubTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	if token == "good" {
		return uuid.New(), nil
	}
	return uuid.Nil, errors.New("invalid token")
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	v, err := services.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return New(Deps{
		Auth:      auth.NewHandler(nil, nil),
		Matches:   &handlers.MatchHandler{},
		Ledger:    &handlers.LedgerHandler{},
		Profiles:  &handlers.ProfileHandler{},
		Tokens:    stubTokens{},
		Validator: v,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRouter(t *testing.T) {
	h := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"balance without token", http.MethodGet, "/api/v1/credits/balance", "", "", http.StatusUnauthorized},
		{"matches with bad token", http.MethodGet, "/api/v1/matches", "bad", "", http.StatusUnauthorized},
		{"wrong method", http.MethodDelete, "/api/v1/credits/spend", "good", "", http.StatusMethodNotAllowed},
		{"spend body rejected", http.MethodPost, "/api/v1/credits/spend", "good", `{"amount":5}`, http.StatusBadRequest},
		{"topup body rejected", http.MethodPost, "/api/v1/credits/topup", "good", `{"amount":5,"card_number":"42"}`, http.StatusBadRequest},
		{"listing body rejected", http.MethodPost, "/api/v1/profiles/me/skills", "good", `{"skill_name":"Yoga","type":"teach"}`, http.StatusBadRequest},
		{"register body rejected", http.MethodPost, "/api/v1/auth/register", "", `{"email":"a@b.c"}`, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nope", "good", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}
