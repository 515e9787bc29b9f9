package config

import (
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/oops"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/ratelimit"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ServerPort         string        `env:"SERVER_PORT" envDefault:"8080"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ServerIdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DatabaseURL      string `env:"DATABASE_URL"`
	DBMaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns       int32  `env:"DB_MIN_CONNS" envDefault:"1"`
	DBConnectRetries uint64 `env:"DB_CONNECT_RETRIES" envDefault:"5"`
	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	SessionSecret string `env:"SESSION_SECRET"`
	HashMode      string `env:"HASH_MODE" envDefault:"production"`
	CookieSecure  *bool  `env:"COOKIE_SECURE"`

	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	TrustedProxyHops  int      `env:"TRUSTED_PROXY_HOPS" envDefault:"1"`

	LoginRateLimit         int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow        time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"10m"`
	ResetRequestRateLimit  int           `env:"RESET_REQUEST_RATE_LIMIT" envDefault:"5"`
	ResetRequestRateWindow time.Duration `env:"RESET_REQUEST_RATE_WINDOW" envDefault:"15m"`
	ResetConfirmRateLimit  int           `env:"RESET_CONFIRM_RATE_LIMIT" envDefault:"10"`
	ResetConfirmRateWindow time.Duration `env:"RESET_CONFIRM_RATE_WINDOW" envDefault:"15m"`
	GeneralRateLimitRPM    int           `env:"GENERAL_RATE_LIMIT_RPM" envDefault:"300"`
	RateLimitPruneInterval time.Duration `env:"RATE_LIMIT_PRUNE_INTERVAL" envDefault:"1m"`

	ResetURLBase       string        `env:"RESET_URL_BASE" envDefault:"http://localhost:5173/reset-password"`
	ResetPurgeInterval time.Duration `env:"RESET_PURGE_INTERVAL" envDefault:"1h"`
	MailAPIURL         string        `env:"MAIL_API_URL"`
	MailAPIKey         string        `env:"MAIL_API_KEY"`
	MailFrom           string        `env:"MAIL_FROM" envDefault:"no-reply@trip-planner.local"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	AuditLogFile   string `env:"AUDIT_LOG_FILE" envDefault:"data/audit.log"`
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

type databaseOnly struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

// LoadDatabaseURL reads only DATABASE_URL, for commands that do not serve
// traffic and so have no use for the session secret.
func LoadDatabaseURL() (string, error) {
	_ = godotenv.Load()

	var cfg databaseOnly
	if err := env.Parse(&cfg); err != nil {
		return "", oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg.DatabaseURL, nil
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return oops.Code("CONFIG_MISSING_SECRET").
			Hint("set SESSION_SECRET to at least 32 random bytes").
			Wrap(auth.ErrMissingSecret)
	}
	if len(c.SessionSecret) < auth.MinSecretLength {
		return oops.Code("CONFIG_WEAK_SECRET").
			With("min_length", auth.MinSecretLength).
			Errorf("SESSION_SECRET is too short")
	}
	if !slices.Contains([]string{EnvDevelopment, EnvProduction, "test"}, c.AppEnv) {
		return oops.Code("CONFIG_INVALID").With("app_env", c.AppEnv).Errorf("APP_ENV must be development, production or test")
	}
	if !slices.Contains([]string{auth.HashModeProduction, auth.HashModeTest}, strings.ToLower(c.HashMode)) {
		return oops.Code("CONFIG_INVALID").With("hash_mode", c.HashMode).Errorf("HASH_MODE must be production or test")
	}
	if c.IsProduction() && strings.EqualFold(c.HashMode, auth.HashModeTest) {
		return oops.Code("CONFIG_INVALID").Errorf("HASH_MODE=test is not allowed in production")
	}
	if c.ServerPort == "" {
		return oops.Code("CONFIG_INVALID").Errorf("SERVER_PORT cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("REQUEST_TIMEOUT must be positive")
	}
	for _, p := range c.RatePolicies() {
		if p.Limit <= 0 || p.Window <= 0 {
			return oops.Code("CONFIG_INVALID").With("action", p.Action).Errorf("rate limit policy must have positive limit and window")
		}
	}
	if c.GeneralRateLimitRPM <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("GENERAL_RATE_LIMIT_RPM must be positive")
	}
	if c.IsProduction() && strings.TrimSpace(c.MailAPIURL) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("MAIL_API_URL is required in production")
	}
	if c.TrustProxyHeaders && c.TrustedProxyHops < 1 {
		return oops.Code("CONFIG_INVALID").Errorf("TRUSTED_PROXY_HOPS must be at least 1 when TRUST_PROXY_HEADERS is set")
	}
	if c.ResetPurgeInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("RESET_PURGE_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// SecureCookies defaults to true in production unless COOKIE_SECURE says otherwise.
func (c *Config) SecureCookies() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return c.IsProduction()
}

// ProxyHops is the number of X-Forwarded-For entries appended by proxies we
// control, or 0 when forwarding headers are ignored.
func (c *Config) ProxyHops() int {
	if !c.TrustProxyHeaders {
		return 0
	}
	return c.TrustedProxyHops
}

// Warnings lists settings that are allowed but unsafe outside local
// development. Callers log them at startup.
func (c *Config) Warnings() []string {
	if c.IsProduction() {
		return nil
	}
	var warnings []string
	if c.CookieSecure == nil {
		warnings = append(warnings, "APP_ENV is "+c.AppEnv+" and COOKIE_SECURE is unset: session cookies are sent without the Secure flag")
	}
	if strings.EqualFold(c.HashMode, auth.HashModeTest) {
		warnings = append(warnings, "HASH_MODE=test: passwords are hashed at the minimum bcrypt cost")
	}
	if strings.TrimSpace(c.MailAPIURL) == "" {
		warnings = append(warnings, "MAIL_API_URL is unset: password reset links are only written to the log")
	}
	return warnings
}

func (c *Config) HashCost() int {
	return auth.CostForMode(c.HashMode)
}

func (c *Config) LoginPolicy() ratelimit.Policy {
	return ratelimit.Policy{Action: "login", Limit: c.LoginRateLimit, Window: c.LoginRateWindow}
}

func (c *Config) ResetRequestPolicy() ratelimit.Policy {
	return ratelimit.Policy{Action: "password_reset", Limit: c.ResetRequestRateLimit, Window: c.ResetRequestRateWindow}
}

func (c *Config) ResetConfirmPolicy() ratelimit.Policy {
	return ratelimit.Policy{Action: "password_reset_confirm", Limit: c.ResetConfirmRateLimit, Window: c.ResetConfirmRateWindow}
}

func (c *Config) RatePolicies() []ratelimit.Policy {
	return []ratelimit.Policy{c.LoginPolicy(), c.ResetRequestPolicy(), c.ResetConfirmPolicy()}
}
