package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort   string `env:"APP_PORT" envDefault:"8080"`
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DatabaseDSN string `env:"DATABASE_DSN,required"`

	RedisAddr     string `env:"REDIS_ADDR,required"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`

	KeycloakIssuer      string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID    string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakRedirectURL string `env:"KEYCLOAK_REDIRECT_URL"`

	// TokenSecret signs email-confirmation tokens.
	TokenSecret             string        `env:"TOKEN_SECRET,required"`
	ConfirmationTokenTTL    time.Duration `env:"CONFIRMATION_TOKEN_TTL" envDefault:"48h"`
	RequireConfirmedAccount bool          `env:"REQUIRE_CONFIRMED_ACCOUNT" envDefault:"true"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutWindow    time.Duration `env:"LOCKOUT_WINDOW" envDefault:"5m"`

	MailQueueSize        int    `env:"MAIL_QUEUE_SIZE" envDefault:"64"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@promise.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@promise.local"`
}

// Load reads configuration from the environment, honoring a local .env file
// when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}
