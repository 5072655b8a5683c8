// Package router wires handlers and middleware into the HTTP surface.
package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/handlers"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/httputil"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/metrics"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/middleware"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/services"
)

type Deps struct {
	Accounts *services.AccountService
	Orders   *services.OrderService
	Auth     *services.AuthService
	// DB is pinged by the health endpoint; nil in memory mode.
	DB             handlers.Pinger
	Metrics        *metrics.Metrics
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *zap.Logger
}

// New builds the application handler. CORS and panic recovery wrap the router
// so that preflight requests never reach route matching. The trace id is
// assigned outermost so recovered panics are logged with it.
func New(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	accountHandler := handlers.NewAccountHandler(d.Accounts, log)
	orderHandler := handlers.NewOrderHandler(d.Orders, log)
	authHandler := handlers.NewAuthHandler(d.Auth, log)
	healthHandler := handlers.NewHealthHandler(d.DB, log)

	router := mux.NewRouter()
	router.Use(middleware.Logging(log), middleware.Metrics(d.Metrics))
	if d.RateLimiter != nil {
		router.Use(d.RateLimiter.Handler)
	}

	authenticated := func(h http.HandlerFunc) http.Handler {
		return middleware.Authenticate(d.Auth, log)(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authenticated(middleware.Authorize(log, models.RoleAdmin)(h).ServeHTTP)
	}

	router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/api", healthHandler.Root).Methods(http.MethodGet, http.MethodHead)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	api.HandleFunc("/accounts", accountHandler.GetAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/stats", accountHandler.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", accountHandler.GetAccount).Methods(http.MethodGet)
	api.Handle("/accounts", adminOnly(accountHandler.CreateAccount)).Methods(http.MethodPost)
	api.Handle("/accounts/{id}", adminOnly(accountHandler.UpdateAccount)).Methods(http.MethodPut)
	api.Handle("/accounts/{id}", adminOnly(accountHandler.DeleteAccount)).Methods(http.MethodDelete)

	api.HandleFunc("/orders", orderHandler.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", orderHandler.GetOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", orderHandler.GetOrder).Methods(http.MethodGet)
	api.Handle("/orders/{id}/status", adminOnly(orderHandler.UpdateOrderStatus)).Methods(http.MethodPut)

	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.Handle("/auth/me", authenticated(authHandler.Me)).Methods(http.MethodGet)
	api.Handle("/auth/profile", authenticated(authHandler.UpdateProfile)).Methods(http.MethodPut)
	api.Handle("/auth/change-password", authenticated(authHandler.ChangePassword)).Methods(http.MethodPut)
	api.Handle("/auth/users", adminOnly(authHandler.GetUsers)).Methods(http.MethodGet)
	api.Handle("/auth/users/{id}/toggle-status", adminOnly(authHandler.ToggleUserStatus)).Methods(http.MethodPut)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, r, log, apperr.NotFound("route not found"))
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Envelope{
			Success: false,
			Error:   "method not allowed",
		})
	})
	// subrouters resolve misses themselves, so both levels need the handlers
	for _, rt := range []*mux.Router{router, api} {
		rt.NotFoundHandler = notFound
		rt.MethodNotAllowedHandler = methodNotAllowed
	}

	var handler http.Handler = router
	handler = middleware.CORS(d.AllowedOrigins)(handler)
	handler = middleware.Recovery(log)(handler)
	handler = middleware.TraceID(handler)
	return handler
}
