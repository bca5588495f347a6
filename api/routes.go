package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garnizeh/clipmarket/internal/analytics"
	"github.com/garnizeh/clipmarket/internal/campaigns"
	"github.com/garnizeh/clipmarket/internal/config"
	"github.com/garnizeh/clipmarket/internal/contracts"
	"github.com/garnizeh/clipmarket/internal/social"
	"github.com/garnizeh/clipmarket/internal/submissions"
	"github.com/garnizeh/clipmarket/internal/twofactor"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

// Services are the domain services the router dispatches to.
type Services struct {
	Users       repository.UserRepo
	TwoFactor   *twofactor.Manager
	Campaigns   *campaigns.Service
	Contracts   *contracts.Service
	Submissions *submissions.Service
	Analytics   *analytics.Service
	Social      *social.Service
	// DB backs the health check; nil skips the ping.
	DB Pinger
}

func SetupRoutes(cfg *config.Config, version, buildTime string, svc Services) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.TokenDuration, cfg.MFATokenDuration)

	// Create handlers
	systemHandler := NewSystemHandler(svc.DB)
	authHandler := NewAuthHandler(svc.Users, tokens)
	twoFactorHandler := NewTwoFactorHandler(svc.TwoFactor, svc.Users, tokens)
	campaignsHandler := NewCampaignsHandler(svc.Campaigns, svc.Submissions)
	contractsHandler := NewContractsHandler(svc.Contracts)
	postsHandler := NewPostsHandler(svc.Submissions)
	analyticsHandler := NewAnalyticsHandler(svc.Analytics)
	socialHandler := NewSocialHandler(svc.Social)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// The only route that takes a token still owing its second factor.
	r.Handle("/v1/2fa/verify", MFAPendingAuthMiddleware(tokens)(http.HandlerFunc(twoFactorHandler.Verify))).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddleware(tokens))

	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")

	apiV1.HandleFunc("/2fa/secret", twoFactorHandler.Secret).Methods("POST")
	apiV1.HandleFunc("/2fa/enable", twoFactorHandler.Enable).Methods("POST")
	apiV1.HandleFunc("/2fa/disable", twoFactorHandler.Disable).Methods("POST")

	apiV1.HandleFunc("/campaigns", campaignsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/campaigns/mine", campaignsHandler.Mine).Methods("GET")
	apiV1.HandleFunc("/campaigns/cpm-recommendation", campaignsHandler.RecommendCPM).Methods("POST")
	apiV1.HandleFunc("/campaigns/{id:[0-9]+}/posts", campaignsHandler.Posts).Methods("GET")

	apiV1.HandleFunc("/contracts", contractsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/contracts", contractsHandler.List).Methods("GET")
	apiV1.HandleFunc("/contracts/{id:[0-9]+}/accept", contractsHandler.Accept).Methods("POST")
	apiV1.HandleFunc("/contracts/{id:[0-9]+}/decline", contractsHandler.Decline).Methods("POST")

	apiV1.HandleFunc("/posts", postsHandler.Submit).Methods("POST")

	apiV1.HandleFunc("/analytics/brand", analyticsHandler.Brand).Methods("GET")

	apiV1.HandleFunc("/social/accounts", socialHandler.Connect).Methods("POST")
	apiV1.HandleFunc("/social/accounts", socialHandler.Accounts).Methods("GET")

	// JSON endpoints; services decide what an anonymous caller may do.
	public := r.PathPrefix("/api").Subrouter()
	public.Use(OptionalAuthMiddleware(tokens))

	public.HandleFunc("/campaigns", campaignsHandler.List).Methods("GET")
	public.HandleFunc("/campaigns", campaignsHandler.Delete).Methods("DELETE")
	public.HandleFunc("/campaigns/{slug}", campaignsHandler.Get).Methods("GET")
	public.HandleFunc("/discover", analyticsHandler.Discover).Methods("GET")
	public.HandleFunc("/finance/export", analyticsHandler.FinanceExport).Methods("GET")
	public.HandleFunc("/social/refresh", socialHandler.Refresh).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusNotFound, "not_found", "route not found")
	})
	// Router middleware is skipped on a method mismatch, so preflight
	// requests are answered here.
	r.MethodNotAllowedHandler = CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}))

	return r
}
