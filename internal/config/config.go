// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package config loads resolute settings. Layers apply in order: built-in
// defaults, the YAML config file, command-line flags, then DATABASE_URL.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/resolute/resolute/internal/logging"
	"github.com/resolute/resolute/internal/progress"
)

// DatabaseURLEnv overrides database.url when set.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete runtime configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Database DatabaseConfig `koanf:"database" json:"database" yaml:"database"`
	Session  SessionConfig  `koanf:"session" json:"session" yaml:"session"`
	Auth     AuthConfig     `koanf:"auth" json:"auth" yaml:"auth"`
	Progress ProgressConfig `koanf:"progress" json:"progress" yaml:"progress"`
	Log      LogConfig      `koanf:"log" json:"log" yaml:"log"`
}

// HTTPConfig configures the public web listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=Listen address for the web application"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout,omitempty" yaml:"read_header_timeout" jsonschema:"type=string,description=Go duration"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout" jsonschema:"type=string,description=Go duration"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=Listen address for /metrics and health probes"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string        `koanf:"url" json:"url,omitempty" yaml:"url" jsonschema:"description=PostgreSQL connection URL"`
	ConnectAttempts uint64        `koanf:"connect_attempts" json:"connect_attempts,omitempty" yaml:"connect_attempts" jsonschema:"minimum=1"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff" json:"connect_backoff,omitempty" yaml:"connect_backoff" jsonschema:"type=string,description=Go duration"`
}

// SessionConfig configures the session cookie and session lifetime.
type SessionConfig struct {
	CookieName    string        `koanf:"cookie_name" json:"cookie_name,omitempty" yaml:"cookie_name"`
	TTL           time.Duration `koanf:"ttl" json:"ttl,omitempty" yaml:"ttl" jsonschema:"type=string,description=Go duration"`
	SecureCookie  bool          `koanf:"secure_cookie" json:"secure_cookie,omitempty" yaml:"secure_cookie"`
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval,omitempty" yaml:"sweep_interval" jsonschema:"type=string,description=Go duration"`
}

// AuthConfig configures the failure protocol and login throttling.
type AuthConfig struct {
	ReturnToExclude  []string      `koanf:"return_to_exclude" json:"return_to_exclude,omitempty" yaml:"return_to_exclude" jsonschema:"description=Glob patterns of paths never remembered as a return-to target"`
	LoginBurst       int           `koanf:"login_burst" json:"login_burst,omitempty" yaml:"login_burst" jsonschema:"minimum=1,description=Credential attempts a session may make back to back"`
	LoginClientBurst int           `koanf:"login_client_burst" json:"login_client_burst,omitempty" yaml:"login_client_burst" jsonschema:"minimum=1,description=Credential attempts one client address may make back to back across its sessions"`
	LoginRefill      time.Duration `koanf:"login_refill" json:"login_refill,omitempty" yaml:"login_refill" jsonschema:"type=string,description=Go duration to earn one more attempt"`
}

// ProgressConfig configures the weekly progress engine.
type ProgressConfig struct {
	Verdict string `koanf:"verdict" json:"verdict,omitempty" yaml:"verdict" jsonschema:"enum=count_and_duration,enum=count_only"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                 ":8080",
		"http.read_header_timeout":  10 * time.Second,
		"http.shutdown_timeout":     10 * time.Second,
		"metrics.addr":              "127.0.0.1:9100",
		"database.url":              "",
		"database.connect_attempts": uint64(5),
		"database.connect_backoff":  500 * time.Millisecond,
		"session.cookie_name":       "resolute_session",
		"session.ttl":               24 * time.Hour,
		"session.secure_cookie":     false,
		"session.sweep_interval":    15 * time.Minute,
		"auth.return_to_exclude":    []string{"/auth/*"},
		"auth.login_burst":          5,
		"auth.login_client_burst":   20,
		"auth.login_refill":         12 * time.Second,
		"progress.verdict":          string(progress.PolicyCountAndDuration),
		"log.format":                "json",
		"log.level":                 "info",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":           "http.addr",
	"metrics-addr":   "metrics.addr",
	"database-url":   "database.url",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"secure-cookie":  "session.secure_cookie",
	"session-ttl":    "session.ttl",
	"sweep-interval": "session.sweep_interval",
	"verdict":        "progress.verdict",
}

// Loader assembles a Config from its layers.
type Loader struct {
	// Path is the YAML file to read. A missing file is only an error when
	// Required is set.
	Path     string
	Required bool
	Flags    *pflag.FlagSet
	Getenv   func(string) string
}

// Load merges all layers into a validated Config and returns the koanf
// instance that produced it.
func (l Loader) Load() (*Config, *koanf.Koanf, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if l.Path != "" {
		if err := l.loadFile(k); err != nil {
			return nil, nil, err
		}
	}

	if l.Flags != nil {
		provider := posflag.ProviderWithFlag(l.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(l.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if url := getenv(DatabaseURLEnv); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, k, nil
}

func (l Loader) loadFile(k *koanf.Koanf) error {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) && !l.Required {
			return nil
		}
		return oops.Code("CONFIG_READ_FAILED").With("path", l.Path).Wrap(err)
	}
	if err := ValidateYAML(data); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", l.Path).Wrap(err)
	}
	if err := k.Load(file.Provider(l.Path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", l.Path).Wrap(err)
	}
	return nil
}

// Validate checks values that the schema cannot express.
func (c *Config) Validate() error {
	invalid := func(key string, value any, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf(format, args...)
	}

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return invalid("http.addr", c.HTTP.Addr, "http.addr must not be empty")
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return invalid("http.read_header_timeout", c.HTTP.ReadHeaderTimeout, "http.read_header_timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", c.HTTP.ShutdownTimeout, "http.shutdown_timeout must be positive")
	}
	if c.Database.ConnectAttempts == 0 {
		return invalid("database.connect_attempts", c.Database.ConnectAttempts, "database.connect_attempts must be at least 1")
	}
	if c.Database.ConnectBackoff <= 0 {
		return invalid("database.connect_backoff", c.Database.ConnectBackoff, "database.connect_backoff must be positive")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return invalid("session.cookie_name", c.Session.CookieName, "session.cookie_name must not be empty")
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", c.Session.TTL, "session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return invalid("session.sweep_interval", c.Session.SweepInterval, "session.sweep_interval must be positive")
	}
	for _, pattern := range c.Auth.ReturnToExclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return oops.Code("CONFIG_INVALID").With("key", "auth.return_to_exclude").With("value", pattern).Wrap(err)
		}
	}
	if c.Auth.LoginBurst < 1 {
		return invalid("auth.login_burst", c.Auth.LoginBurst, "auth.login_burst must be at least 1")
	}
	if c.Auth.LoginClientBurst < c.Auth.LoginBurst {
		return invalid("auth.login_client_burst", c.Auth.LoginClientBurst, "auth.login_client_burst must be at least auth.login_burst")
	}
	if c.Auth.LoginRefill <= 0 {
		return invalid("auth.login_refill", c.Auth.LoginRefill, "auth.login_refill must be positive")
	}
	if _, err := progress.ParsePolicy(c.Progress.Verdict); err != nil {
		return invalid("progress.verdict", c.Progress.Verdict, "progress.verdict: %v", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", c.Log.Format, "log.format must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, "log.level: %v", err)
	}
	return nil
}

// RequireDatabase reports CONFIG_INVALID when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database.url is required (set it in the config file, --database-url or %s)", DatabaseURLEnv)
	}
	return nil
}
