package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	State     StateConfig
	OAuth     OAuthConfig
	Frontend  FrontendConfig
	Delivery  DeliveryConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"8080" validate:"required"`
	URL          string        `env:"SERVER_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	Environment  string        `env:"ENVIRONMENT" envDefault:"development"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type AuthConfig struct {
	SigningSecret   string        `env:"SIGNING_SECRET" validate:"required,min=32"`
	LegacyJWTSecret string        `env:"JWT_SECRET"`
	Issuer          string        `env:"SESSION_ISSUER" envDefault:"sso-broker" validate:"required"`
	TokenExpiration time.Duration `env:"SESSION_TTL" envDefault:"1h" validate:"gt=0"`
	CookieName      string        `env:"COOKIE_NAME" envDefault:"auth_token"`
	CookieSecure    bool
	CookieSameSite  string `env:"COOKIE_SAME_SITE" envDefault:"lax" validate:"oneof=strict lax none"`
}

type StateConfig struct {
	Backend string        `env:"STATE_BACKEND" envDefault:"memory" validate:"oneof=memory redis"`
	TTL     time.Duration `env:"STATE_TTL" envDefault:"10m" validate:"gt=0"`
}

type OAuthConfig struct {
	Google          ProviderConfig `envPrefix:"GOOGLE_"`
	GitHub          ProviderConfig `envPrefix:"GITHUB_"`
	Microsoft       ProviderConfig `envPrefix:"MS_"`
	HTTPTimeout     time.Duration  `env:"OAUTH_HTTP_TIMEOUT" envDefault:"10s"`
	ExchangeTimeout time.Duration  `env:"OAUTH_EXCHANGE_TIMEOUT" envDefault:"30s"`
}

type ProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URI" validate:"omitempty,url"`
}

// Configured reports whether both client credentials are present.
func (p ProviderConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type FrontendConfig struct {
	URL       string `env:"FRONTEND_URL" envDefault:"http://localhost:3000" validate:"required,url"`
	CORSDebug bool   `env:"CORS_DEBUG"`
}

type DeliveryConfig struct {
	Mode string `env:"DELIVERY_MODE" envDefault:"popup" validate:"oneof=popup json redirect"`
}

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"debug"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"`
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerSecond float64 `env:"RATE_LIMIT_REQUESTS_PER_SECOND" envDefault:"10"`
	BurstSize         int     `env:"RATE_LIMIT_BURST_SIZE" envDefault:"20"`
	TrustProxy        bool    `env:"RATE_LIMIT_TRUST_PROXY"`
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

// Load reads the configuration from the process environment, fills computed
// defaults and validates the result.
func Load() (*Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.SigningSecret == "" {
		c.Auth.SigningSecret = c.Auth.LegacyJWTSecret
	}

	production := c.Server.Environment == "production"
	c.Auth.CookieSecure = production
	c.Logging.JSONFormat = production || c.Logging.Format == "json"

	serverURL := strings.TrimRight(c.Server.URL, "/")
	defaultRedirect(&c.OAuth.Google, serverURL+"/auth/google/callback")
	defaultRedirect(&c.OAuth.GitHub, serverURL+"/auth/github/callback")
	defaultRedirect(&c.OAuth.Microsoft, serverURL+"/auth/microsoft/callback")
}

func defaultRedirect(p *ProviderConfig, fallback string) {
	if p.RedirectURL == "" {
		p.RedirectURL = fallback
	}
}

func (c *Config) validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if !c.GoogleOAuthConfigured() && !c.GitHubOAuthConfigured() && !c.MicrosoftOAuthConfigured() {
		return fmt.Errorf("at least one OAuth provider must be configured")
	}

	return nil
}

func (c *Config) GoogleOAuthConfigured() bool {
	return c.OAuth.Google.Configured()
}

func (c *Config) GitHubOAuthConfigured() bool {
	return c.OAuth.GitHub.Configured()
}

func (c *Config) MicrosoftOAuthConfigured() bool {
	return c.OAuth.Microsoft.Configured()
}

// RedisAddr returns host:port for the Redis connection when no URL is set.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
