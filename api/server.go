/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/profiles/*       Employee profiles and rollups
  /api/activities/*     Activities and workflow transitions
  /api/departments/*    Carbon budget records
  /api/dashboard        Organization dashboard
  /api/rewards/*        Reward catalog and redemption
  /api/opportunities/*  NGO opportunity feed
  /api/scenarios/*      Demo scenarios
  /health               Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Profile routes
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Post("/", h.CreateProfile)
			r.Get("/{id}", h.GetProfile)
			r.Get("/{id}/activities", h.ListProfileActivities)
			r.Delete("/{id}", h.DeleteProfile)
		})

		// Activity routes
		r.Route("/activities", func(r chi.Router) {
			r.Post("/", h.CreateActivity)
			r.Get("/{id}", h.GetActivity)
			r.Put("/{id}", h.UpdateActivity)
			r.Post("/{id}/submit", h.SubmitActivity)
			r.Post("/{id}/approve", h.ApproveActivity)
			r.Post("/{id}/reject", h.RejectActivity)
		})

		// Department routes
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.ListDepartments)
			r.Post("/", h.CreateDepartment)
			r.Get("/{id}", h.GetDepartment)
			r.Put("/{id}/budget", h.UpdateDepartmentBudget)
		})

		// Dashboard routes
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", h.GetDashboard)
			r.Post("/refresh", h.RefreshDashboard)
		})

		// Reward routes
		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", h.ListRewards)
			r.Post("/", h.CreateReward)
			r.Post("/{id}/redeem", h.RedeemReward)
		})

		// Opportunity routes
		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", h.ListOpportunities)
			r.Post("/seed", h.SeedOpportunities)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
