package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillswap/backend/internal/ledger"
	"github.com/skillswap/backend/internal/middleware"
	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/profiles"
	"github.com/skillswap/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockMatcher struct {
	gotFilters services.MatchFilters
	gotSubject uuid.UUID
	results    []models.MatchResult
	skills     []string
	err        error
}

func (m *mockMatcher) FindMatches(_ context.Context, subject uuid.UUID, f services.MatchFilters) ([]models.MatchResult, error) {
	m.gotSubject, m.gotFilters = subject, f
	return m.results, m.err
}

func (m *mockMatcher) RecommendSkills(_ context.Context, subject uuid.UUID) ([]string, error) {
	m.gotSubject = subject
	return m.skills, m.err
}

type mockLedger struct {
	balance  decimal.Decimal
	topUpRow *models.LedgerTransaction
	gotTopUp ledger.TopUpRequest
	gotSpend ledger.SpendRequest
	gotLimit int
	err      error
}

func (m *mockLedger) TopUp(_ context.Context, req ledger.TopUpRequest) (*models.LedgerTransaction, error) {
	m.gotTopUp = req
	return m.topUpRow, m.err
}

func (m *mockLedger) Spend(_ context.Context, req ledger.SpendRequest) ([]*models.LedgerTransaction, error) {
	m.gotSpend = req
	if m.err != nil {
		return nil, m.err
	}
	return []*models.LedgerTransaction{{Kind: models.KindSpend}, {Kind: models.KindEarn}}, nil
}

func (m *mockLedger) GetBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return m.balance, m.err
}

func (m *mockLedger) GetTransactions(_ context.Context, _ uuid.UUID, limit int) ([]*models.LedgerTransaction, error) {
	m.gotLimit = limit
	return nil, m.err
}

func (m *mockLedger) VerifyChain(context.Context, uuid.UUID) error { return nil }

type mockProfiles struct {
	profile *models.Profile
	err     error
}

func (m *mockProfiles) AddListing(_ context.Context, userID uuid.UUID, in profiles.ListingInput) (*models.SkillListing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.SkillListing{ID: uuid.New(), UserID: userID, SkillName: in.SkillName, Direction: in.Direction}, nil
}

func (m *mockProfiles) ListMine(context.Context, uuid.UUID) ([]models.SkillListing, error) {
	return []models.SkillListing{}, m.err
}

func (m *mockProfiles) GetProfile(context.Context, uuid.UUID) (*models.Profile, error) {
	return m.profile, m.err
}

// asUser returns a request whose context carries the caller, as RequireUser would set it.
func asUser(id uuid.UUID, method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), id))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}

// ---------------------------------------------------------------------------
// 1. Error taxonomy mapping
// ---------------------------------------------------------------------------

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: self transfer", models.ErrInvalidTransfer), http.StatusBadRequest},
		{models.ErrInsufficientFunds, http.StatusPaymentRequired},
		{&models.PaymentDeclinedError{Reason: "expired card"}, http.StatusPaymentRequired},
		{models.StoreError(errors.New("dial tcp")), http.StatusServiceUnavailable},
		{models.ErrDuplicateListing, http.StatusConflict},
		{fmt.Errorf("%w: bad", services.ErrValidation), http.StatusBadRequest},
		{models.ErrLedgerInconsistent, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. MatchHandler
// ---------------------------------------------------------------------------

func TestFindMatches_ParsesFilters(t *testing.T) {
	subject := uuid.New()
	m := &mockMatcher{results: []models.MatchResult{{Score: 80}}}
	h := &MatchHandler{Matcher: m}

	rec := httptest.NewRecorder()
	h.FindMatches(rec, asUser(subject, http.MethodGet, "/api/v1/matches?skill=yoga&type=offer&min_rating=4&limit=5", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if m.gotSubject != subject {
		t.Errorf("subject not taken from caller")
	}
	f := m.gotFilters
	if f.SkillName != "yoga" || f.Direction == nil || *f.Direction != models.DirectionOffer || f.MinRating == nil || *f.MinRating != 4 || f.Limit != 5 {
		t.Errorf("unexpected filters %+v", f)
	}
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestFindMatches_BadQuery(t *testing.T) {
	h := &MatchHandler{Matcher: &mockMatcher{}}
	for _, q := range []string{"type=teach", "min_rating=6", "min_rating=x", "limit=0", "limit=abc"} {
		rec := httptest.NewRecorder()
		h.FindMatches(rec, asUser(uuid.New(), http.MethodGet, "/api/v1/matches?"+q, ""))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestFindMatches_UnknownSubject(t *testing.T) {
	h := &MatchHandler{Matcher: &mockMatcher{err: models.ErrNotFound}}
	rec := httptest.NewRecorder()
	h.FindMatches(rec, asUser(uuid.New(), http.MethodGet, "/api/v1/matches", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRecommendations(t *testing.T) {
	h := &MatchHandler{Matcher: &mockMatcher{skills: []string{"Guitar", "Chess"}}}
	rec := httptest.NewRecorder()
	h.Recommendations(rec, asUser(uuid.New(), http.MethodGet, "/api/v1/matches/recommendations", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	skills, _ := decodeBody(t, rec)["skills"].([]any)
	if len(skills) != 2 {
		t.Errorf("expected 2 skills, got %v", skills)
	}
}

// ---------------------------------------------------------------------------
// 3. LedgerHandler
// ---------------------------------------------------------------------------

func TestTopUp_Approved(t *testing.T) {
	caller := uuid.New()
	l := &mockLedger{topUpRow: &models.LedgerTransaction{ID: uuid.New(), Status: models.StatusCompleted}}
	h := &LedgerHandler{Ledger: l}

	body := `{"amount":"25.50","card_number":"4242 4242 4242 4242","expiry_month":12,"expiry_year":2030,"cvv":"123","cardholder_name":"Ana"}`
	rec := httptest.NewRecorder()
	h.TopUp(rec, asUser(caller, http.MethodPost, "/api/v1/credits/topup", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := l.gotTopUp
	if got.UserID != caller || !got.Amount.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Card.Number != "4242 4242 4242 4242" || got.Card.CVV != "123" || got.Card.ExpiryYear != 2030 {
		t.Errorf("card not decoded: %+v", got.Card)
	}
}

func TestTopUp_Declined(t *testing.T) {
	row := &models.LedgerTransaction{ID: uuid.New(), Status: models.StatusFailed}
	h := &LedgerHandler{Ledger: &mockLedger{topUpRow: row, err: &models.PaymentDeclinedError{Reason: "insufficient funds"}}}

	body := `{"amount":10,"card_number":"4000000000000002","expiry_month":1,"expiry_year":2030,"cvv":"123","cardholder_name":"Ana"}`
	rec := httptest.NewRecorder()
	h.TopUp(rec, asUser(uuid.New(), http.MethodPost, "/api/v1/credits/topup", body))

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	resp := decodeBody(t, rec)
	if resp["reason"] != "insufficient funds" {
		t.Errorf("expected decline reason, got %v", resp)
	}
	if tx, ok := resp["transaction"].(map[string]any); !ok || tx["status"] != string(models.StatusFailed) {
		t.Errorf("expected failed transaction row, got %v", resp["transaction"])
	}
}

func TestSpend(t *testing.T) {
	caller, to := uuid.New(), uuid.New()
	l := &mockLedger{}
	h := &LedgerHandler{Ledger: l}

	body := `{"to_user_id":"` + to.String() + `","amount":3,"description":"Yoga session","skill_name":"Yoga"}`
	rec := httptest.NewRecorder()
	h.Spend(rec, asUser(caller, http.MethodPost, "/api/v1/credits/spend", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if l.gotSpend.FromUserID != caller || l.gotSpend.ToUserID != to || l.gotSpend.SkillName == nil {
		t.Errorf("unexpected spend request %+v", l.gotSpend)
	}

	l.err = models.ErrInsufficientFunds
	rec = httptest.NewRecorder()
	h.Spend(rec, asUser(caller, http.MethodPost, "/api/v1/credits/spend", body))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
}

func TestBalanceAndTransactions(t *testing.T) {
	l := &mockLedger{balance: decimal.RequireFromString("42.50")}
	h := &LedgerHandler{Ledger: l}

	rec := httptest.NewRecorder()
	h.GetBalance(rec, asUser(uuid.New(), http.MethodGet, "/api/v1/credits/balance", ""))
	if rec.Code != http.StatusOK || decodeBody(t, rec)["balance"] != "42.5" {
		t.Fatalf("unexpected balance response %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetTransactions(rec, asUser(uuid.New(), http.MethodGet, "/api/v1/credits/transactions?limit=7", ""))
	if rec.Code != http.StatusOK || l.gotLimit != 7 {
		t.Fatalf("status %d, limit %d", rec.Code, l.gotLimit)
	}
	if txs, ok := decodeBody(t, rec)["transactions"].([]any); !ok || len(txs) != 0 {
		t.Errorf("expected empty transactions array")
	}

	l.err = models.StoreError(errors.New("timeout"))
	rec = httptest.NewRecorder()
	h.GetBalance(rec, asUser(uuid.New(), http.MethodGet, "/api/v1/credits/balance", ""))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// 4. ProfileHandler
// ---------------------------------------------------------------------------

func TestProfileHandler(t *testing.T) {
	id := uuid.New()
	p := &mockProfiles{profile: &models.Profile{ID: id, Name: "Ana"}}
	h := &ProfileHandler{Profiles: p}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/profiles/{id}", h.GetProfile)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/"+id.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.AddSkill(rec, asUser(id, http.MethodPost, "/api/v1/profiles/me/skills", `{"skill_name":"Yoga","type":"offer"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	p.err = models.ErrDuplicateListing
	rec = httptest.NewRecorder()
	h.AddSkill(rec, asUser(id, http.MethodPost, "/api/v1/profiles/me/skills", `{"skill_name":"Yoga","type":"offer"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
