package router

import (
	"log/slog"
	"net/http"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/handlers"
	"github.com/skillswap/backend/internal/middleware"
	"github.com/skillswap/backend/internal/services"
)

// Deps are the handlers and collaborators the API routes are built from.
type Deps struct {
	Auth      *auth.Handler
	Matches   *handlers.MatchHandler
	Ledger    *handlers.LedgerHandler
	Profiles  *handlers.ProfileHandler
	Tokens    middleware.TokenValidator
	Validator middleware.BodyValidator
	Logger    *slog.Logger
}

// New returns an http.Handler that serves the API under /api/v1.
// Middleware chain: AccessLog -> (RequireUser) -> (ValidateBody on writes) -> handler.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	user := middleware.RequireUser(d.Tokens)
	body := func(schema string, h http.HandlerFunc) http.Handler {
		return middleware.ValidateBody(d.Validator, schema)(h)
	}

	mux.Handle("POST "+base+"/auth/register", body(services.SchemaRegister, d.Auth.Register))
	mux.HandleFunc("POST "+base+"/auth/login", d.Auth.Login)

	mux.Handle("GET "+base+"/matches", user(http.HandlerFunc(d.Matches.FindMatches)))
	mux.Handle("GET "+base+"/matches/recommendations", user(http.HandlerFunc(d.Matches.Recommendations)))

	mux.Handle("GET "+base+"/credits/balance", user(http.HandlerFunc(d.Ledger.GetBalance)))
	mux.Handle("GET "+base+"/credits/transactions", user(http.HandlerFunc(d.Ledger.GetTransactions)))
	mux.Handle("POST "+base+"/credits/topup", user(body(services.SchemaTopUp, d.Ledger.TopUp)))
	mux.Handle("POST "+base+"/credits/spend", user(body(services.SchemaSpend, d.Ledger.Spend)))

	mux.Handle("GET "+base+"/profiles/me/skills", user(http.HandlerFunc(d.Profiles.ListMySkills)))
	mux.Handle("POST "+base+"/profiles/me/skills", user(body(services.SchemaSkillListing, d.Profiles.AddSkill)))
	mux.Handle("GET "+base+"/profiles/{id}", user(http.HandlerFunc(d.Profiles.GetProfile)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return middleware.AccessLog(d.Logger)(mux)
}
