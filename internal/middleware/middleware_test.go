package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubTokens struct {
	id  uuid.UUID
	err error
}

func (s *stubTokens) ValidateToken(_ context.Context, _ string) (uuid.UUID, error) {
	return s.id, s.err
}

// okHandler writes the caller ID (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(UserIDFromCtx(r.Context()).String()))
})

// ---------------------------------------------------------------------------
// 1. RequireUser
// ---------------------------------------------------------------------------

func TestRequireUser_ValidToken(t *testing.T) {
	id := uuid.New()
	mw := RequireUser(&stubTokens{id: id})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != id.String() {
		t.Errorf("expected user id %q in body, got %q", id, body)
	}
}

func TestRequireUser_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
		tokens *stubTokens
	}{
		{"missing header", "", &stubTokens{id: uuid.New()}},
		{"not bearer", "Basic abc", &stubTokens{id: uuid.New()}},
		{"invalid token", "Bearer bad", &stubTokens{err: errors.New("invalid token")}},
		{"nil subject", "Bearer odd", &stubTokens{id: uuid.Nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			RequireUser(tc.tokens)(okHandler).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 2. ValidateBody
// ---------------------------------------------------------------------------

func TestValidateBody(t *testing.T) {
	v, err := services.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	})
	h := ValidateBody(v, services.SchemaSpend)(echo)

	good := `{"to_user_id":"` + uuid.NewString() + `","amount":5,"description":"Guitar lesson"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(good)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != good {
		t.Errorf("body not restored for handler: %q", rec.Body.String())
	}

	for name, body := range map[string]string{
		"missing description": `{"to_user_id":"` + uuid.NewString() + `","amount":5}`,
		"bad uuid":            `{"to_user_id":"nope","amount":5,"description":"x"}`,
		"not json":            `{`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 3. AccessLog
// ---------------------------------------------------------------------------

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	out := buf.String()
	if !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/api/v1/credits/balance") {
		t.Errorf("unexpected log line %q", out)
	}
}
