// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/dochub/internal/app/accounts"
	"github.com/dalemusser/dochub/internal/app/externalauth"
	healthfeature "github.com/dalemusser/dochub/internal/app/features/health"
	"github.com/dalemusser/dochub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// DocHub is a library-level core consumed by a separate API layer, so
// the handler built here is the ops surface only: the health endpoint
// for load balancers, plus the OAuth redirect/callback pair that feeds
// externally-validated profiles into the account sync path. Sessions,
// application routing and UI all live in the consuming service.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	provider := externalauth.New(appCfg.OAuthClientID, appCfg.OAuthClientSecret, appCfg.BaseURL, logger)
	if provider.IsConfigured() {
		manager := accounts.New(deps.MongoClient, deps.MongoDatabase, logger)

		r.Get("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			url, err := provider.BeginLogin()
			if err != nil {
				logger.Error("begin external login failed", zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.Redirect(w, req, url, http.StatusTemporaryRedirect)
		})

		r.Get("/auth/callback", func(w http.ResponseWriter, req *http.Request) {
			if !provider.ConsumeState(req.URL.Query().Get("state")) {
				http.Error(w, "invalid state", http.StatusBadRequest)
				return
			}
			ctx, cancel := context.WithTimeout(req.Context(), timeouts.Medium())
			defer cancel()

			profile, err := provider.Exchange(ctx, req.URL.Query().Get("code"))
			if err != nil {
				logger.Error("external auth exchange failed", zap.Error(err))
				http.Error(w, "authentication failed", http.StatusBadGateway)
				return
			}
			if err := manager.EnsureExternalUser(ctx, profile); err != nil {
				logger.Error("external user sync failed", zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	} else {
		logger.Info("external OAuth not configured, auth routes disabled")
	}

	return r, nil
}
