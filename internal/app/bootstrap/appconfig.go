// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging, CORS and body limits.
// AppConfig covers the inventory backend, the console session and the
// list screens.
type AppConfig struct {
	// Inventory backend
	APIBaseURL      string        // REST API root, e.g. https://inventory.example.com/api
	APITimeout      time.Duration // per-request timeout of backend calls
	RefreshCoalesce bool          // share one refresh among concurrent 401s

	// Console session
	SessionKey     string        // secret the cookie keys are derived from
	SessionName    string        // cookie name (default: stockconsole-session)
	SessionDomain  string        // cookie domain (blank means current host)
	SessionBackend string        // "memory" or "mongo"
	SessionIdleTTL time.Duration // idle sessions are dropped after this long
	SweepInterval  time.Duration // purge cadence of the Mongo session store

	// MongoDB, used only when SessionBackend is "mongo"
	MongoURI      string
	MongoDatabase string

	// Credential form throttling; zero uses the built-in default
	LoginAttemptsPerIP    int
	LoginAttemptsPerEmail int

	// List screens
	CategoryCacheTTL time.Duration // how long category selector entries are reused
	DefaultPageSize  int           // initial page size of product lists
}
