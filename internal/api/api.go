// Package api implements the JSON/HTTP surface under /ims/api/: every
// handler authenticates the request, authorizes against the capability
// set the endpoint requires, validates inputs, executes store calls,
// and renders a response. Collection reads stream their JSON arrays
// element by element; mutations return 204 No Content.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ims/internal/auth"
	"ims/internal/auth/jwttoken"
	"ims/internal/auth/revocation"
	"ims/internal/directory"
	"ims/internal/eventbus"
	"ims/internal/obsv/metrics"
	"ims/internal/store"
	"ims/pkg/middleware"
)

// API carries every collaborator the handlers need. It is immutable
// after New; per-request state lives in the request context.
type API struct {
	logger        *slog.Logger
	store         store.Store
	directory     directory.Directory
	provider      *auth.Provider
	tokens        *jwttoken.Service
	revocations   revocation.List
	bus           *eventbus.Bus
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	tokenLifetime time.Duration
	deployment    string
}

// Deps bundles the constructor arguments for API.
type Deps struct {
	Logger        *slog.Logger
	Store         store.Store
	Directory     directory.Directory
	Provider      *auth.Provider
	Tokens        *jwttoken.Service
	Revocations   revocation.List
	Bus           *eventbus.Bus
	Metrics       *metrics.Metrics
	TokenLifetime time.Duration
	Deployment    string
}

// New constructs the API surface.
func New(deps Deps) *API {
	lifetime := deps.TokenLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	if deps.Revocations == nil {
		deps.Revocations = revocation.NewMemoryList()
	}
	return &API{
		logger:        deps.Logger,
		store:         deps.Store,
		directory:     deps.Directory,
		provider:      deps.Provider,
		tokens:        deps.Tokens,
		revocations:   deps.Revocations,
		bus:           deps.Bus,
		metrics:       deps.Metrics,
		tracer:        otel.Tracer("ims/api"),
		tokenLifetime: lifetime,
		deployment:    deps.Deployment,
	}
}

// Router builds the chi router for the /ims/api/ prefix. Recovery
// sits outermost, then request ID, logging, latency, and finally the
// token-resolving auth middleware. Authorization is
// per-handler, not per-route: most endpoints tolerate an anonymous
// request and fail only when a capability check needs an identity.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.LatencyMiddleware(a.metrics))
	r.Use(a.resolveIdentity)

	r.Route("/ims/api", func(r chi.Router) {
		r.Get("/ping", a.handlePing)
		// Login does directory I/O and a bcrypt comparison; bound it so
		// a dead roster backend can't pin connections open.
		r.With(middleware.Timeout(10 * time.Second)).Post("/auth", a.handleLogin)
		r.Post("/auth/logout", a.handleLogout)

		r.Get("/access", a.handleGetAccess)
		r.Post("/access", a.handleSetAccess)

		r.Get("/streets", a.handleGetStreets)
		r.Post("/streets", a.handleCreateStreet)

		r.Get("/personnel/", a.handlePersonnel)

		r.Get("/incident_types/", a.handleGetIncidentTypes)
		r.Post("/incident_types/", a.handleEditIncidentTypes)

		r.Get("/events/", a.handleListEvents)
		r.Post("/events/", a.handleCreateEvent)

		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", a.handleGetEvent)
			r.Get("/locations/", a.handleLocations)
			r.Get("/incidents/", a.handleListIncidents)
			r.Post("/incidents/", a.handleCreateIncident)
			r.Get("/incidents/{number}", a.handleGetIncident)
			r.Post("/incidents/{number}", a.handleEditIncident)
			r.Get("/field_reports/", a.handleListFieldReports)
			r.Post("/field_reports/", a.handleCreateFieldReport)
			r.Get("/field_reports/{number}", a.handleGetFieldReport)
			r.Post("/field_reports/{number}", a.handleEditFieldReport)
		})

		// The flat field_reports listing takes the event as a query
		// parameter instead of a path segment, for dashboard clients
		// that filter by attached incident.
		r.Get("/field_reports", a.handleListFieldReportsFlat)

		// The SSE stream is the one endpoint that hard-requires a valid
		// bearer up front: there is no meaningful anonymous rendering
		// of a push stream.
		r.With(middleware.RequireAuth(a.tokens, auth.NewRevocationChecker(a.revocations), a.logger)).
			Get("/eventsource", a.handleEventSource)
	})

	return r
}
