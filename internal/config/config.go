// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds runtime configuration. Permission and credential keys are not
// part of it: they are read live on every call.
type Config struct {
	Transport string `envconfig:"XMCP_TRANSPORT" default:"stdio" validate:"oneof=stdio http"`
	Host      string `envconfig:"XMCP_HOST" default:"0.0.0.0" validate:"required"`
	Port      int    `envconfig:"PORT" default:"8081" validate:"min=1,max=65535"`

	LogFormat string `envconfig:"XMCP_LOG_FORMAT" default:"text" validate:"oneof=text json"`
	LogLevel  string `envconfig:"XMCP_LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `envconfig:"XMCP_DATABASE_URL"`
	RedisAddr   string `envconfig:"XMCP_REDIS_ADDR" validate:"omitempty,hostname_port"`

	ChromeURL        string        `envconfig:"XMCP_CHROME_URL" validate:"omitempty,url"`
	ArticleTimeout   time.Duration `envconfig:"XMCP_ARTICLE_TIMEOUT" default:"60s" validate:"gt=0"`
	ArticleMaxTokens int           `envconfig:"XMCP_ARTICLE_MAX_TOKENS" default:"0" validate:"gte=0"`

	ScheduleInterval time.Duration `envconfig:"XMCP_SCHEDULE_INTERVAL" default:"30s" validate:"gt=0"`
	// SecretKey is a base64 32-byte key sealing credentials of scheduled posts.
	SecretKey string `envconfig:"XMCP_SECRET_KEY" validate:"omitempty,base64"`

	HTTPRateLimit int      `envconfig:"XMCP_HTTP_RATE_LIMIT" default:"120" validate:"gte=0"`
	CORSOrigins   []string `envconfig:"XMCP_CORS_ORIGINS" default:"*"`

	TraceStdout bool   `envconfig:"XMCP_TRACE_STDOUT" default:"false"`
	Version     string `envconfig:"XMCP_VERSION"`
}

var validate = validator.New()

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsHTTP reports whether the HTTP transport is selected.
func (c *Config) IsHTTP() bool { return c != nil && c.Transport == TransportHTTP }

// Origins returns the CORS origins with blanks removed.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
