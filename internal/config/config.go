// Package config loads the service configuration from .env files, the
// process environment and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173", "http://localhost:5174",
	"http://localhost:4173", "http://localhost:4174",
	"http://localhost:4000", "http://localhost:3000",
}

// Config is the complete service configuration.
type Config struct {
	Host string `env:"HOST,default=0.0.0.0" yaml:"host"`
	Port int    `env:"PORT,default=8000" yaml:"port"`

	LogLevel  string `env:"LOG_LEVEL,default=info" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT,default=json" yaml:"log_format"`

	WeatherAPIKey     string  `env:"WEATHERAPI_API_KEY" yaml:"-"`
	WeatherAPIBaseURL string  `env:"WEATHERAPI_BASE_URL,default=https://api.weatherapi.com/v1" yaml:"weatherapi_base_url"`
	WeatherAPIRPS     float64 `env:"WEATHERAPI_RPS,default=10" yaml:"weatherapi_rps"`
	IPInfoURL         string  `env:"IPINFO_URL,default=https://ipinfo.io/json" yaml:"ipinfo_url"`
	DefaultCity       string  `env:"DEFAULT_CITY,default=Berlin" yaml:"default_city"`

	GeminiAPIKey string `env:"GOOGLE_GEMINI_API_KEY" yaml:"-"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-2.0-flash" yaml:"gemini_model"`

	HoursBefore int `env:"HOURS_BEFORE,default=2" yaml:"hours_before"`
	HoursAfter  int `env:"HOURS_AFTER,default=3" yaml:"hours_after"`

	AllowedOriginsRaw string   `env:"CORS_ALLOWED_ORIGINS" yaml:"-"`
	AllowedOrigins    []string `yaml:"cors_allowed_origins"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS,default=5" yaml:"rate_limit_rps"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST,default=10" yaml:"rate_limit_burst"`

	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// always identifies the client.
	TrustedProxiesRaw string   `env:"TRUSTED_PROXIES" yaml:"-"`
	TrustedProxies    []string `yaml:"trusted_proxies"`

	RedisURL string        `env:"REDIS_URL" yaml:"-"`
	CacheTTL time.Duration `env:"CACHE_TTL,default=10m" yaml:"cache_ttl"`

	DatabaseURL string `env:"DATABASE_URL" yaml:"-"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=30s" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s" yaml:"shutdown_timeout"`

	ConfigFile string `env:"CONFIG_FILE" yaml:"-"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// EnvFile is loaded before decoding the environment. Missing files are
	// ignored. Variables already set in the process win.
	EnvFile string
	// ConfigFile overrides CONFIG_FILE.
	ConfigFile string
}

// Load builds a Config from the .env file, the environment and an optional
// YAML overlay. It does not validate; call Validate before serving.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	cfg.AllowedOrigins = splitAndTrimCSV(cfg.AllowedOriginsRaw)
	cfg.TrustedProxies = splitAndTrimCSV(cfg.TrustedProxiesRaw)

	path := opts.ConfigFile
	if path == "" {
		path = cfg.ConfigFile
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyFile overlays non-zero values from a YAML file. Secrets are never read
// from the file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.Host, overlay.Host)
	setInt(&c.Port, overlay.Port)
	setString(&c.LogLevel, overlay.LogLevel)
	setString(&c.LogFormat, overlay.LogFormat)
	setString(&c.WeatherAPIBaseURL, overlay.WeatherAPIBaseURL)
	if overlay.WeatherAPIRPS > 0 {
		c.WeatherAPIRPS = overlay.WeatherAPIRPS
	}
	setString(&c.IPInfoURL, overlay.IPInfoURL)
	setString(&c.DefaultCity, overlay.DefaultCity)
	setString(&c.GeminiModel, overlay.GeminiModel)
	setInt(&c.HoursBefore, overlay.HoursBefore)
	setInt(&c.HoursAfter, overlay.HoursAfter)
	if len(overlay.AllowedOrigins) > 0 {
		c.AllowedOrigins = overlay.AllowedOrigins
	}
	if len(overlay.TrustedProxies) > 0 {
		c.TrustedProxies = overlay.TrustedProxies
	}
	setInt(&c.RateLimitRPS, overlay.RateLimitRPS)
	setInt(&c.RateLimitBurst, overlay.RateLimitBurst)
	setDuration(&c.CacheTTL, overlay.CacheTTL)
	setDuration(&c.RequestTimeout, overlay.RequestTimeout)
	setDuration(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DefaultCity == "" {
		c.DefaultCity = "Berlin"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
}

// Validate checks the configuration required to serve requests.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.WeatherAPIKey) == "" {
		problems = append(problems, "WEATHERAPI_API_KEY is required")
	}
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		problems = append(problems, "GOOGLE_GEMINI_API_KEY is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if c.HoursBefore < 0 || c.HoursAfter < 0 {
		problems = append(problems, "HOURS_BEFORE and HOURS_AFTER must not be negative")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		problems = append(problems, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.WeatherAPIRPS <= 0 {
		problems = append(problems, "WEATHERAPI_RPS must be positive")
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			problems = append(problems, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func validProxy(v string) bool {
	if _, _, err := net.ParseCIDR(v); err == nil {
		return true
	}
	return net.ParseIP(v) != nil
}

func splitAndTrimCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
