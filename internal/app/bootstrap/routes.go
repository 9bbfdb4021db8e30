// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"net/http"

	dashboardfeature "github.com/dalemusser/stockconsole/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/stockconsole/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stockconsole/internal/app/features/health"
	homefeature "github.com/dalemusser/stockconsole/internal/app/features/home"
	loginfeature "github.com/dalemusser/stockconsole/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stockconsole/internal/app/features/logout"
	organizationsfeature "github.com/dalemusser/stockconsole/internal/app/features/organizations"
	productsfeature "github.com/dalemusser/stockconsole/internal/app/features/products"
	registerfeature "github.com/dalemusser/stockconsole/internal/app/features/register"
	categorystore "github.com/dalemusser/stockconsole/internal/app/store/categories"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, the session backend and any
// Startup hooks are ready. It builds the gateway factory, the session
// manager and the per-tenant and per-session caches, boots the template
// engine, and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	httpClient := &http.Client{Timeout: appCfg.APITimeout}
	gateways := gateway.NewFactory(gateway.Options{
		BaseURL:    appCfg.APIBaseURL,
		HTTPClient: httpClient,
		Logger:     logger.Named("gateway"),
		Coalesce:   appCfg.RefreshCoalesce,
	})

	sessionMgr, err := auth.NewSessionManager(auth.Config{
		SessionKey: appCfg.SessionKey,
		Name:       appCfg.SessionName,
		Domain:     appCfg.SessionDomain,
		Secure:     secure,
		Backend:    deps.Sessions,
		Gateways:   gateways,
	}, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	categories, err := categorystore.NewCache(appCfg.CategoryCacheTTL, logger)
	if err != nil {
		logger.Error("category cache init failed", zap.Error(err))
		return nil, err
	}
	onShutdown(categories.Close)

	guard, err := ratelimit.NewGuard(ratelimit.GuardConfig{
		AddressLimit: appCfg.LoginAttemptsPerIP,
		EmailLimit:   appCfg.LoginAttemptsPerEmail,
	})
	if err != nil {
		logger.Error("login guard init failed", zap.Error(err))
		return nil, err
	}
	onShutdown(guard.Close)

	controllers, err := productsfeature.NewControllers(appCfg.SessionIdleTTL, appCfg.DefaultPageSize, logger)
	if err != nil {
		logger.Error("product controllers init failed", zap.Error(err))
		return nil, err
	}
	onShutdown(controllers.Close)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// Health and metrics sit outside CSRF and sessions.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.APIBaseURL, httpClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", promhttp.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	r.Group(func(r chi.Router) {
		if !secure {
			r.Use(plaintextRequests)
		}
		r.Use(csrfProtect(appCfg.SessionKey, secure))

		// Loads the console session into context if the cookie names one.
		r.Use(sessionMgr.LoadSession)

		homeHandler := homefeature.NewHandler(sessionMgr, logger)
		r.Mount("/", homefeature.Routes(homeHandler))

		// Authentication
		loginHandler := loginfeature.NewHandler(sessionMgr, errLog, logger)
		loginHandler.Guard = guard
		r.Mount("/login", loginfeature.Routes(loginHandler))

		registerHandler := registerfeature.NewHandler(sessionMgr, errLog, logger)
		r.Mount("/register", registerfeature.Routes(registerHandler))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		// Error pages
		errorsHandler := errorsfeature.NewHandler()
		r.Get("/forbidden", errorsHandler.Forbidden)
		r.Get("/unauthorized", errorsHandler.Unauthorized)
		r.NotFound(errorsHandler.NotFound)

		// Dashboard with the products screen beneath it
		dashboardHandler := dashboardfeature.NewHandler(sessionMgr, logger)
		dashboard := dashboardfeature.Routes(dashboardHandler, sessionMgr)
		productsHandler := productsfeature.NewHandler(sessionMgr, controllers, categories, errLog, logger)
		dashboard.Mount("/products", productsfeature.Routes(productsHandler, sessionMgr))
		r.Mount("/dashboard", dashboard)

		orgHandler := organizationsfeature.NewHandler(sessionMgr, errLog, logger)
		r.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))
	})

	return r, nil
}

// csrfProtect guards every form post. The CSRF key is derived from the
// session key so one secret configures both.
func csrfProtect(sessionKey string, secure bool) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte("stockconsole csrf:" + sessionKey))
	return csrf.Protect(key[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errorsfeature.RenderForbidden(w, r, "La sesión del formulario expiró. Recarga la página e intenta de nuevo.", "/")
		})),
	)
}

// plaintextRequests tells the CSRF middleware that dev traffic is plain
// HTTP, so its Referer check does not demand https.
func plaintextRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
