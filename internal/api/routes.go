package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/onnwee/agrisync/backend/internal/api/handlers"
	"github.com/onnwee/agrisync/backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps collects what the router serves. Nil services leave their routes
// unregistered.
type Deps struct {
	Auth          handlers.ProfileResolver
	Producers     handlers.ProducerAPI
	Cooperatives  handlers.CooperativeAPI
	Notifications handlers.NotificationAPI
	Assignments   handlers.AssignmentAPI
	Seasons       handlers.SeasonAPI

	Cache      handlers.CacheAdmin
	Hub        *handlers.Hub
	AdminToken string

	ReadyChecks map[string]handlers.Check
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	// ETagMaxAge is the private Cache-Control lifetime of GET API responses.
	ETagMaxAge time.Duration
}

// NewRouter registers every route and wraps the router in the global
// middleware chain. CORS sits outside the router so preflight requests are
// answered before method matching.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestMetrics)
	r.Use(middleware.Trace)

	// Health
	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", handlers.Ready(d.ReadyChecks)).Methods(http.MethodGet)
	// Compress already negotiates encodings for every response.
	metricsHandler := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}))
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	// Websocket stream of cache events, admin only and outside the ETag buffer.
	if d.Hub != nil {
		ws := r.PathPrefix("/api/admin/cache/events").Subrouter()
		ws.Use(middleware.RequireAdmin(d.AdminToken))
		ws.HandleFunc("", handlers.NewWebSocketHandler(d.Hub).HandleWebSocket).Methods(http.MethodGet)
	}

	// Cache administration
	if d.Cache != nil {
		admin := r.PathPrefix("/api/admin/cache").Subrouter()
		admin.Use(middleware.RequireAdmin(d.AdminToken))
		h := handlers.NewCacheAdminHandler(d.Cache)
		admin.HandleFunc("/stats", h.GetCacheStats).Methods(http.MethodGet)
		admin.HandleFunc("/metrics", h.GetCacheMetrics).Methods(http.MethodGet)
		admin.HandleFunc("/invalidate", h.InvalidateCache).Methods(http.MethodPost)
		admin.HandleFunc("/clear", h.ClearCache).Methods(http.MethodPost)
		admin.HandleFunc("/purge-expired", h.PurgeExpired).Methods(http.MethodPost)
		admin.HandleFunc("/snapshot", h.SnapshotMetrics).Methods(http.MethodPost)
		admin.HandleFunc("/keys/{key:.+}", h.PutCacheEntry).Methods(http.MethodPut)
		admin.HandleFunc("/keys/{key:.+}", h.DeleteCacheKey).Methods(http.MethodDelete)
	}

	if d.Auth != nil {
		registerAPI(r, d)
	}

	// Applied innermost first; RequestID ends up outermost so every later
	// log line and error body carries it.
	var h http.Handler = r
	h = middleware.ValidateRequestBody(h)
	h = middleware.Compress(h)
	if d.RateLimiter != nil {
		h = d.RateLimiter.Limit(h)
	}
	h = middleware.CORS(middleware.WithOrigins(d.CORSOrigins))(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return h
}

// registerAPI mounts the signed-in domain routes.
func registerAPI(r *mux.Router, d Deps) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(handlers.RequireUser(d.Auth))
	api.Use(middleware.ETag(d.ETagMaxAge))

	api.HandleFunc("/me", handlers.Me).Methods(http.MethodGet)
	api.HandleFunc("/auth/signout", handlers.SignOut(d.Auth)).Methods(http.MethodPost)

	if p := d.Producers; p != nil {
		api.HandleFunc("/me/producers", handlers.MyProducers(p)).Methods(http.MethodGet)
		api.HandleFunc("/producers", handlers.ListProducers(p)).Methods(http.MethodGet)
		api.HandleFunc("/producers", handlers.CreateProducer(p)).Methods(http.MethodPost)
		// Fixed paths before /{id} so they are not captured as ids.
		api.HandleFunc("/producers/stats", handlers.GetProducerStats(p)).Methods(http.MethodGet)
		api.HandleFunc("/producers/bulk", handlers.BulkCreateProducers(p)).Methods(http.MethodPost)
		api.HandleFunc("/producers/{id}", handlers.GetProducer(p)).Methods(http.MethodGet)
		api.HandleFunc("/producers/{id}/details", handlers.GetProducerDetails(p)).Methods(http.MethodGet)
		api.HandleFunc("/producers/{id}", handlers.UpdateProducer(p)).Methods(http.MethodPatch)
		api.HandleFunc("/producers/{id}", handlers.DeleteProducer(p)).Methods(http.MethodDelete)
	}

	if c := d.Cooperatives; c != nil {
		api.HandleFunc("/cooperatives", handlers.ListCooperatives(c)).Methods(http.MethodGet)
		api.HandleFunc("/cooperatives", handlers.CreateCooperative(c)).Methods(http.MethodPost)
		api.HandleFunc("/cooperatives/{id}", handlers.GetCooperative(c)).Methods(http.MethodGet)
		api.HandleFunc("/cooperatives/{id}/details", handlers.GetCooperativeDetails(c)).Methods(http.MethodGet)
		api.HandleFunc("/cooperatives/{id}", handlers.UpdateCooperative(c)).Methods(http.MethodPatch)
		api.HandleFunc("/cooperatives/{id}", handlers.DeleteCooperative(c)).Methods(http.MethodDelete)
	}

	if n := d.Notifications; n != nil {
		api.HandleFunc("/notifications", handlers.ListNotifications(n)).Methods(http.MethodGet)
		api.HandleFunc("/notifications", handlers.CreateNotification(n)).Methods(http.MethodPost)
		api.HandleFunc("/notifications/unread-count", handlers.UnreadCount(n)).Methods(http.MethodGet)
		api.HandleFunc("/notifications/read-all", handlers.MarkAllNotificationsRead(n)).Methods(http.MethodPost)
		api.HandleFunc("/notifications/{id}/read", handlers.MarkNotificationRead(n)).Methods(http.MethodPost)
	}

	if a := d.Assignments; a != nil {
		api.HandleFunc("/agents/{agentID}/assignments", handlers.ListAgentAssignments(a)).Methods(http.MethodGet)
		api.HandleFunc("/agents/{agentID}/workload", handlers.GetAgentWorkload(a)).Methods(http.MethodGet)
		api.HandleFunc("/assignments", handlers.CreateAssignment(a)).Methods(http.MethodPost)
		api.HandleFunc("/assignments/{id}", handlers.DeleteAssignment(a)).Methods(http.MethodDelete)
	}

	if s := d.Seasons; s != nil {
		api.HandleFunc("/seasons", handlers.ListSeasons(s)).Methods(http.MethodGet)
		api.HandleFunc("/seasons/active", handlers.ActiveSeason(s)).Methods(http.MethodGet)
	}
}
