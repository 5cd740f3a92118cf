// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Errors returned by Load wrap this package's sentinels.
package config

// Config contains process configuration for both binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the dashboard listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the REST backend.
	BackendURL string `koanf:"backend_url"`

	// BackendTimeoutMS bounds each backend call. 0 disables the timeout.
	BackendTimeoutMS int `koanf:"backend_timeout_ms"`

	// PageLimit is the default page size of the prospect list.
	PageLimit int `koanf:"page_limit"`

	// MaxWorkspaces caps the number of visitor workspaces held in memory.
	MaxWorkspaces int `koanf:"max_workspaces"`

	// StorageDir holds per-visitor persisted state. Empty keeps it in memory.
	StorageDir string `koanf:"storage_dir"`

	// CookieSecure marks the visitor and viewport cookies Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// MockAddr is the listen address of the development backend.
	MockAddr string `koanf:"mock_addr"`

	// JWTSecret signs tokens issued by the development backend.
	JWTSecret string `koanf:"jwt_secret"`

	// SeedDemo loads demo prospects and a demo account into the development backend.
	SeedDemo bool `koanf:"seed_demo"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8080",
		BackendURL:       "http://localhost:3000/api",
		BackendTimeoutMS: 10_000,
		PageLimit:        10,
		MaxWorkspaces:    10_000,
		StorageDir:       "",
		CookieSecure:     false,
		MockAddr:         ":3000",
		JWTSecret:        "scout-dev-secret",
		SeedDemo:         true,
	}
}
