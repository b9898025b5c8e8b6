package main

import (
	"net/http"

	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("/health", httphandlers.HandleHealth)
	mux.HandleFunc("/ready", httphandlers.HandleReady(deps.DB))

	// Public auth routes
	limited := func(h http.HandlerFunc) http.Handler {
		if deps.Limiter == nil {
			return h
		}
		return middleware.RateLimit(deps.Limiter, deps.TrustedProxies, deps.logger)(h)
	}
	mux.Handle("/api/auth/sign-up", limited(deps.AuthHandler.HandleSignUp))
	mux.Handle("/api/auth/sign-in", limited(deps.AuthHandler.HandleSignIn))
	mux.HandleFunc("/api/auth/me", deps.AuthHandler.HandleMe)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	requireSession := middleware.RequireSession(deps.AuthService, cfg.Session.CookieName, deps.logger)

	mux.Handle("/api/bank/link-token", requireSession(http.HandlerFunc(deps.BankLinkHandler.HandleCreateLinkToken)))
	mux.Handle("/api/bank/exchange", requireSession(http.HandlerFunc(deps.BankLinkHandler.HandleExchangePublicToken)))
	mux.Handle("/api/home", requireSession(http.HandlerFunc(deps.HomeHandler.HandleHome)))

	// Tracing sits directly on the mux so spans carry the matched pattern.
	handler := middleware.Chain(middleware.Tracing(mux),
		middleware.Telemetry(cfg.Telemetry.ServiceName),
		middleware.RequestID,
		middleware.Logging(deps.logger),
		middleware.Recovery(deps.logger),
		middleware.CORS(cfg.Server.AllowedHosts),
	)

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		deps.logger.Info("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
