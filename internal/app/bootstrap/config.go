// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/paging"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	sessionBackendMemory = "memory"
	sessionBackendMongo  = "mongo"
)

// appConfigKeys defines the configuration keys for the console.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_base_url, session_name, etc.
//   - Environment variables: STOCKCONSOLE_API_BASE_URL, STOCKCONSOLE_SESSION_NAME, etc.
//   - Command-line flags: --api_base_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "api_base_url", Default: "http://inventorydevelop.us-east-2.elasticbeanstalk.com/api", Desc: "Inventory backend REST API base URL"},
	{Name: "api_timeout", Default: "15s", Desc: "Timeout of each backend request"},
	{Name: "refresh_coalesce", Default: true, Desc: "Share one token refresh among concurrent requests of a session"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session cookie key (must be strong in production)"},
	{Name: "session_name", Default: "stockconsole-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_backend", Default: sessionBackendMemory, Desc: "Where console sessions live: 'memory' or 'mongo'"},
	{Name: "session_idle_ttl", Default: "12h", Desc: "Idle console sessions are dropped after this long"},
	{Name: "session_sweep_interval", Default: "10m", Desc: "How often idle MongoDB sessions are purged (session_backend=mongo)"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI (session_backend=mongo)"},
	{Name: "mongo_database", Default: "stock_console", Desc: "MongoDB database name (session_backend=mongo)"},

	{Name: "login_attempts_per_ip", Default: 10, Desc: "Sign-in and reset attempts allowed per client address per minute"},
	{Name: "login_attempts_per_email", Default: 5, Desc: "Sign-in and reset attempts allowed per email per five minutes"},

	{Name: "category_cache_ttl", Default: "5m", Desc: "How long product category options are cached per organization"},
	{Name: "default_page_size", Default: paging.DefaultPageSize, Desc: "Initial page size of product lists (5, 10, 25 or 50)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// Precedence is flags > env > files > defaults; env vars use the
// STOCKCONSOLE_ prefix.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STOCKCONSOLE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		APIBaseURL:      appValues.String("api_base_url"),
		APITimeout:      appValues.Duration("api_timeout", 15*time.Second),
		RefreshCoalesce: appValues.Bool("refresh_coalesce"),

		SessionKey:     appValues.String("session_key"),
		SessionName:    appValues.String("session_name"),
		SessionDomain:  appValues.String("session_domain"),
		SessionBackend: appValues.String("session_backend"),
		SessionIdleTTL: appValues.Duration("session_idle_ttl", 12*time.Hour),
		SweepInterval:  appValues.Duration("session_sweep_interval", 10*time.Minute),

		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		LoginAttemptsPerIP:    appValues.Int("login_attempts_per_ip"),
		LoginAttemptsPerEmail: appValues.Int("login_attempts_per_email"),

		CategoryCacheTTL: appValues.Duration("category_cache_ttl", 5*time.Minute),
		DefaultPageSize:  appValues.Int("default_page_size"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	u, err := url.Parse(appCfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q: want an absolute http(s) URL", appCfg.APIBaseURL)
	}
	if appCfg.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be positive, got %s", appCfg.APITimeout)
	}

	switch appCfg.SessionBackend {
	case sessionBackendMemory:
	case sessionBackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required when session_backend is %q", sessionBackendMongo)
		}
		if appCfg.SweepInterval <= 0 {
			return fmt.Errorf("session_sweep_interval must be positive, got %s", appCfg.SweepInterval)
		}
	default:
		return fmt.Errorf("session_backend must be %q or %q, got %q", sessionBackendMemory, sessionBackendMongo, appCfg.SessionBackend)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters in prod")
	}
	if appCfg.LoginAttemptsPerIP < 0 || appCfg.LoginAttemptsPerEmail < 0 {
		return fmt.Errorf("login attempt limits must not be negative")
	}
	if !paging.ValidPageSize(appCfg.DefaultPageSize) {
		return fmt.Errorf("default_page_size must be one of %v, got %d", paging.PageSizes, appCfg.DefaultPageSize)
	}
	return nil
}
