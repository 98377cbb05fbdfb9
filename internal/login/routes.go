package login

import (
	"net/http"

	"github.com/2beens/clientportal/internal/middleware"
	"github.com/2beens/clientportal/internal/telemetry/metrics"

	"github.com/gorilla/mux"
)

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	guard *middleware.Guard,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
	metricsManager *metrics.Manager,
) {
	// rate limit the credential and otp checks to prevent brute forcing
	rateLimited := middleware.RateLimit(rateLimiter, "login", allowedPerMin, metricsManager)

	publicRouter := mainRouter.NewRoute().Subrouter()
	publicRouter.Use(guard.PublicOnly())
	publicRouter.HandleFunc("/login", handler.HandleLoginPage).Methods("GET").Name("login-page")
	publicRouter.Handle("/login", rateLimited(http.HandlerFunc(handler.HandleLogin))).Methods("POST").Name("login")
	publicRouter.Handle("/login/otp", rateLimited(http.HandlerFunc(handler.HandleOTP))).Methods("POST").Name("login-otp")
	publicRouter.HandleFunc("/login/back", handler.HandleBack).Methods("POST").Name("login-back")

	protectedRouter := mainRouter.NewRoute().Subrouter()
	protectedRouter.Use(guard.Protected())
	protectedRouter.HandleFunc("/logout", handler.HandleLogout).Methods("POST").Name("logout")
}
