package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// without redis, sessions live in memory (dev only)
	RedisDisabled bool `toml:"redis_disabled"`

	// postgres (activity log)
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`
	ActivityLogOn  bool   `toml:"activity_log_enabled"`

	// auth
	SessionTTL           Duration     `toml:"session_ttl"`
	SessionCacheSizeMB   int          `toml:"session_cache_size_mb"`
	SessionCacheTTL      Duration     `toml:"session_cache_ttl"`
	LoginDelay           Duration     `toml:"login_delay"`
	OTPDelay             Duration     `toml:"otp_delay"`
	LogoutDelay          Duration     `toml:"logout_delay"`
	LoginRateLimitPerMin int          `toml:"login_rate_limit_per_min"`
	OTPCode              string       `toml:"otp_code"`
	PasswordHashCost     int          `toml:"password_hash_cost"`
	SecureCookies        bool         `toml:"secure_cookies"`
	ShowDemoCredentials  bool         `toml:"show_demo_credentials"`
	Accounts             []Credential `toml:"accounts"`

	// cors
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Credential is a single entry of the fixed credential table.
// Either Password or PasswordHash (bcrypt) must be set.
type Credential struct {
	ID           string `toml:"id"`
	Email        string `toml:"email"`
	Name         string `toml:"name"`
	Role         string `toml:"role"`
	Password     string `toml:"password"`
	PasswordHash string `toml:"password_hash"`
}

// Duration allows "1s", "500ms" style values in the toml file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration [%s]: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	return cfg, nil
}

func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode toml config %s: %w", path, err)
	}
	return FromToml(&t, env)
}

func Parse(env, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode toml config: %w", err)
	}
	return FromToml(&t, env)
}

func FromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultAccounts is the demo credential table of the portal.
func DefaultAccounts() []Credential {
	return []Credential{
		{
			ID:       "1",
			Email:    "admin@totalenergies.com",
			Name:     "John Doe (Admin)",
			Role:     "admin",
			Password: "admin123",
		},
		{
			ID:       "2",
			Email:    "user@totalenergies.com",
			Name:     "Jane Smith (User)",
			Role:     "user",
			Password: "user123",
		},
	}
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.SessionTTL.Duration == 0 {
		c.SessionTTL.Duration = 7 * 24 * time.Hour
	}
	if c.SessionCacheSizeMB == 0 {
		c.SessionCacheSizeMB = 8
	}
	if c.SessionCacheTTL.Duration == 0 {
		c.SessionCacheTTL.Duration = 30 * time.Second
	}
	if c.LoginRateLimitPerMin == 0 {
		c.LoginRateLimitPerMin = 15
	}
	if c.OTPCode == "" {
		c.OTPCode = "123456"
	}
	if c.PasswordHashCost == 0 {
		c.PasswordHashCost = 10
	}
	if len(c.Accounts) == 0 {
		c.Accounts = DefaultAccounts()
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.SessionCacheTTL.Duration < time.Second || c.SessionCacheTTL.Duration >= c.SessionTTL.Duration {
		return fmt.Errorf("session cache ttl must be between 1s and the session ttl, got %s", c.SessionCacheTTL.Duration)
	}
	if len(c.OTPCode) != 6 {
		return fmt.Errorf("otp code must have 6 digits, got %d chars", len(c.OTPCode))
	}
	for _, r := range c.OTPCode {
		if r < '0' || r > '9' {
			return fmt.Errorf("otp code must be numeric: %s", c.OTPCode)
		}
	}
	seen := map[string]bool{}
	for _, acc := range c.Accounts {
		email := strings.ToLower(strings.TrimSpace(acc.Email))
		if email == "" {
			return fmt.Errorf("account [%s] without email", acc.ID)
		}
		if seen[email] {
			return fmt.Errorf("duplicate account email: %s", email)
		}
		seen[email] = true
		if acc.Password == "" && acc.PasswordHash == "" {
			return fmt.Errorf("account [%s] without password", email)
		}
	}
	return nil
}
