package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loyaltyhub/points-ledger/internal/api/handler"
	"github.com/loyaltyhub/points-ledger/internal/api/middleware"
	"github.com/loyaltyhub/points-ledger/internal/ledger"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Service        *ledger.Service
	DBPinger       handler.DBPinger
	Version        string
	AdminTokenHash string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Method("GET", "/metrics", promhttp.Handler())

	loyaltyHandler := handler.NewLoyaltyHandler(deps.Service)
	r.Route("/loyalty", func(r chi.Router) {
		r.Post("/earn", loyaltyHandler.Earn)
		r.Post("/redeem", loyaltyHandler.Redeem)
		r.Get("/balance/{memberId}", loyaltyHandler.Balance)
		r.Get("/history/{memberId}", loyaltyHandler.History)
		r.Get("/tiers", loyaltyHandler.Tiers)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(deps.AdminTokenHash))
			r.Post("/admin-adjust", loyaltyHandler.AdminAdjust)
			r.Post("/sweep-expired", loyaltyHandler.SweepExpired)
		})
	})

	return r
}
