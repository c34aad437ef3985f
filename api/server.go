/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/staff/*        Staff, their shifts, reports and surcharges
  /api/car-washes/*   Car washes, their reports and adjustments
  /api/shifts/*       Shift lifecycle and transferred cars
  /api/penalties      Staff penalties
  /api/settings/*     Singleton settings
  /api/reports        Period reports
  /api/sync/*         Sheets export
  /api/scenarios/*    Demo data (dev only)
  /healthz            Liveness probe

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

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

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Staff routes
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Get("/{id}", h.GetStaff)
			r.Post("/{id}/ban", h.BanStaff)
			r.Get("/{id}/shifts/current", h.GetCurrentShift)
			r.Get("/{id}/shifts/active", h.GetActiveShift)
			r.Get("/{id}/report", h.GetStaffReport)
			r.Get("/{id}/deposit", h.GetDeposit)
			r.Post("/{id}/surcharges", h.CreateSurcharge)
		})

		// Car wash routes
		r.Route("/car-washes", func(r chi.Router) {
			r.Get("/", h.ListCarWashes)
			r.Post("/", h.CreateCarWash)
			r.Get("/{id}", h.GetCarWash)
			r.Get("/{id}/report", h.GetCarWashReport)
			r.Post("/{id}/penalties", h.CreateCarWashPenalty)
			r.Post("/{id}/surcharges", h.CreateCarWashSurcharge)
		})

		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Get("/current-date", h.GetCurrentShiftDate)
			r.Post("/regular", h.CreateRegularShifts)
			r.Post("/extra", h.CreateExtraShifts)
			r.Post("/test", h.CreateTestShift)
			r.Get("/{id}", h.GetShift)
			r.Post("/{id}/confirm", h.ConfirmShift)
			r.Post("/{id}/start", h.StartShift)
			r.Post("/{id}/finish", h.FinishShift)
			r.Post("/{id}/reject", h.RejectShift)
			r.Get("/{id}/cars", h.ListShiftCars)
			r.Post("/{id}/cars", h.AddShiftCar)
			r.Get("/{id}/summary", h.GetShiftSummary)
		})

		r.Post("/penalties", h.CreatePenalty)

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/bonus", h.GetBonusSettings)
			r.Put("/bonus", h.SaveBonusSettings)
		})

		r.Get("/reports", h.ListStaffReports)

		// Sync routes
		r.Route("/sync", func(r chi.Router) {
			r.Get("/runs", h.ListSyncRuns)
			r.Post("/run", h.TriggerSync)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
