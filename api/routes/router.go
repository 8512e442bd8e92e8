package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wedanddone/wedanddone-backend/api/controllers"
	"github.com/wedanddone/wedanddone-backend/api/middleware"
	"github.com/wedanddone/wedanddone-backend/internal/checkout"
	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// AccountService covers everything the router needs from internal/accounts.
type AccountService interface {
	middleware.AccountResolver
	controllers.ProfileService
	controllers.GuestSessionClaimer
}

// GuestCountRegistry covers the couple and admin views of the registry.
type GuestCountRegistry interface {
	controllers.GuestCountEditor
	controllers.LockRegistry
}

// ChangeRequestService covers the couple and admin views of change requests.
type ChangeRequestService interface {
	controllers.ChangeRequestSubmitter
	controllers.ChangeRequestReviewer
}

// ContractService covers quoting and the signed contract lifecycle.
type ContractService interface {
	controllers.PlanQuoter
	controllers.ContractService
}

// Params wires the HTTP surface.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	Gatherer       prometheus.Gatherer
	Readiness      map[string]controllers.Pinger
	Idempotency    middleware.IdempotencyStore
	Accounts       AccountService
	GuestCount     GuestCountRegistry
	ChangeRequests ChangeRequestService
	Contracts      ContractService
	Checkout       checkout.Service
	DeadLetters    controllers.DLQReader
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	// Money and lock moving routes replay their first response instead of
	// running twice.
	once := middleware.Idempotency(p.Idempotency, cfg.Guest.IdempotencyTTL, logg)
	charge := middleware.Idempotency(p.Idempotency, middleware.ChargeIdempotencyTTL, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if len(cfg.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.App.CORSOrigins))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, p.Accounts, logg))

		// Guests and accounts.
		r.Get("/ping", controllers.PrivatePing())
		r.Get("/profile", controllers.GetProfile(p.Accounts, logg))
		r.Put("/profile", controllers.UpdateProfile(p.Accounts, logg))
		r.Post("/plans/quote", controllers.QuotePlan(p.Contracts, logg))
		r.Get("/guest-count", controllers.GetGuestCount(p.GuestCount, logg))
		r.Put("/guest-count", controllers.SetGuestCount(p.GuestCount, logg))

		// Accounts only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAccount(logg))
			r.Route("/guest-count/change-requests", func(r chi.Router) {
				r.Get("/", controllers.ListChangeRequests(p.ChangeRequests, logg))
				r.With(once).Post("/", controllers.SubmitChangeRequest(p.ChangeRequests, logg))
			})
			r.With(once).Post("/accounts/claim-guest-session", controllers.ClaimGuestSession(p.Accounts, logg))
			r.Route("/contracts", func(r chi.Router) {
				r.Get("/", controllers.ListContracts(p.Contracts, logg))
				r.With(once).Post("/", controllers.SignContract(p.Contracts, logg))
				r.Get("/{contractId}", controllers.GetContract(p.Contracts, logg))
				r.With(charge).Post("/{contractId}/checkout", controllers.CheckoutContract(p.Checkout, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, p.Accounts, logg))
		r.Use(middleware.RequireAccount(logg))
		r.Use(middleware.RequireRole(logg, enums.AccountRoleAdmin))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/accounts/{accountId}/guest-count", func(r chi.Router) {
			r.Get("/", controllers.AdminGetGuestCount(p.GuestCount, logg))
			r.With(once).Post("/locks", controllers.AdminLockGuestCount(p.GuestCount, logg))
			r.With(once).Delete("/locks/{reason}", controllers.AdminUnlockGuestCount(p.GuestCount, logg))
		})
		r.Route("/guest-count/change-requests", func(r chi.Router) {
			r.Get("/", controllers.AdminPendingChangeRequests(p.ChangeRequests, logg))
			r.With(once).Post("/{requestId}/approve", controllers.AdminApproveChangeRequest(p.ChangeRequests, logg))
			r.With(once).Post("/{requestId}/reject", controllers.AdminRejectChangeRequest(p.ChangeRequests, logg))
		})
		r.Get("/outbox/dlq", controllers.AdminListDLQ(p.DeadLetters, logg))
		r.Get("/outbox/dlq/{eventId}", controllers.AdminGetDLQ(p.DeadLetters, logg))
	})

	return r
}
