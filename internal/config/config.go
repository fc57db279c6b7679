package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Origins of local front-end dev servers, allowed outside production.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string

	// CORS
	ClientURLs        []string
	CORSPreviewOrigin string

	// Extra CIDRs whose X-Forwarded-For / X-Real-IP headers are believed,
	// on top of loopback and private ranges.
	TrustedProxies []string

	// Runtime
	AppEnv   string
	LogLevel string

	// AMQP (empty URL disables change events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AMQPPrefetch int
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "5000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", "./data/ledger.db"),

		ClientURLs:        getEnvList("CLIENT_URL", []string{"http://localhost:3000"}),
		CORSPreviewOrigin: getEnv("CORS_PREVIEW_ORIGIN", "https://*.vercel.app"),
		TrustedProxies:    getEnvList("TRUSTED_PROXIES", nil),

		AppEnv:   strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),
		AMQPPrefetch: getEnvInt("AMQP_PREFETCH", 10),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		errors = append(errors, "database URL cannot be empty")
	}

	validEnvs := []string{EnvDevelopment, EnvProduction, EnvTest}
	if !slices.Contains(validEnvs, c.AppEnv) {
		errors = append(errors, fmt.Sprintf("invalid app env '%s': must be one of %v", c.AppEnv, validEnvs))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	for _, origin := range c.ClientURLs {
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid client URL '%s': must be an absolute URL", origin))
		}
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 203.0.113.0/24", cidr))
		}
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AMQPPrefetch < 1 || c.AMQPPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid AMQP prefetch %d: must be between 1 and 1000", c.AMQPPrefetch))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// EventsEnabled reports whether change events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// AllowedOrigins returns the CORS origin list: the configured client URLs,
// the preview origin pattern and, outside production, the local dev servers.
func (c *Config) AllowedOrigins() []string {
	origins := slices.Clone(c.ClientURLs)
	if c.CORSPreviewOrigin != "" {
		origins = append(origins, c.CORSPreviewOrigin)
	}
	if !c.IsProduction() {
		for _, o := range devOrigins {
			if !slices.Contains(origins, o) {
				origins = append(origins, o)
			}
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
