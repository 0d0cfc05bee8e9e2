// Package config loads the langhub service configuration.
//
// Values come from, in order of precedence:
//   - LANGHUB_* environment variables (a .env file in the working directory is
//     loaded first when present),
//   - the YAML file named by LANGHUB_CONFIG or the --config flag,
//   - Default().
//
// The resulting Config is validated once at startup and treated as read-only.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"langhub.io/internal/auth"
)

// EnvPrefix is the prefix shared by every environment override.
const EnvPrefix = "LANGHUB_"

// Config is the master configuration for langhub services.
type Config struct {
	// Distribution selects cloud or self-hosted behaviour.
	Distribution string `yaml:"distribution"`

	AutoTranslate AutoTranslateConfig `yaml:"auto_translate"`
	HTTP          HTTPConfig          `yaml:"http"`
	GRPC          GRPCConfig          `yaml:"grpc"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Log           LogConfig           `yaml:"log"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
}

// AutoTranslateConfig describes the machine translation provider.
// A provider counts as configured only when both name and key are set.
type AutoTranslateConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
}

// Configured reports whether a usable provider is present.
func (a AutoTranslateConfig) Configured() bool {
	return strings.TrimSpace(a.Provider) != "" && strings.TrimSpace(a.APIKey) != ""
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// TrustProxy honours X-Forwarded-For for per-client rate limiting.
	TrustProxy bool `yaml:"trust_proxy"`
}

type GRPCConfig struct {
	// Addr is empty when the gRPC health endpoint is disabled.
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret"`
	Issuer      string        `yaml:"issuer"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Default returns the base configuration that file and environment values
// are layered onto.
func Default() *Config {
	return &Config{
		Distribution: string(auth.DistributionCloud),
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:   "langhub",
			TokenTTL: time.Hour,
		},
		Log: LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			PerSecond: 20,
			Burst:     40,
		},
	}
}

// Load builds the configuration from path (or LANGHUB_CONFIG when path is
// empty), the optional .env file and the process environment. The result
// is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overlays LANGHUB_* variables. Malformed numeric or duration
// values are reported together.
func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	str("DISTRIBUTION", &c.Distribution)
	str("AUTO_TRANSLATE_PROVIDER", &c.AutoTranslate.Provider)
	str("AUTO_TRANSLATE_API_KEY", &c.AutoTranslate.APIKey)
	str("HTTP_ADDR", &c.HTTP.Addr)
	dur("HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.HTTP.CORSOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "HTTP_TRUST_PROXY"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sHTTP_TRUST_PROXY: %w", EnvPrefix, err))
		} else {
			c.HTTP.TrustProxy = b
		}
	}
	str("GRPC_ADDR", &c.GRPC.Addr)
	str("PG_DSN", &c.Database.DSN)
	integer("PG_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	str("TOKEN_SECRET", &c.Auth.TokenSecret)
	str("TOKEN_ISSUER", &c.Auth.Issuer)
	dur("TOKEN_TTL", &c.Auth.TokenTTL)
	str("LOG_LEVEL", &c.Log.Level)
	integer("RATE_LIMIT_BURST", &c.RateLimit.Burst)
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_LIMIT_PER_SECOND: %w", EnvPrefix, err))
		} else {
			c.RateLimit.PerSecond = f
		}
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := auth.ParseDistribution(c.Distribution); err != nil {
		errs = append(errs, fmt.Errorf("distribution: %w", err))
	}
	if strings.TrimSpace(c.AutoTranslate.Provider) != "" && strings.TrimSpace(c.AutoTranslate.APIKey) == "" {
		errs = append(errs, errors.New("auto_translate.api_key is required when a provider is set"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes must be positive"))
	}
	if c.Database.MaxOpenConns < 0 {
		errs = append(errs, errors.New("database.max_open_conns must not be negative"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" {
		errs = append(errs, errors.New("auth.issuer is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not supported", c.Log.Level))
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}

	return errors.Join(errs...)
}

// System returns the immutable view consumed by the access core. Call it
// only on a validated Config.
func (c *Config) System() auth.SystemConfiguration {
	dist, _ := auth.ParseDistribution(c.Distribution)
	return auth.SystemConfiguration{
		Distribution:                    dist,
		AutoTranslateProviderConfigured: c.AutoTranslate.Configured(),
	}
}
