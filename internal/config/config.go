package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ist-auth"`

	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Issuer          string        `env:"JWT_ISSUER" envDefault:"ist-auth-system"`
	Audience        string        `env:"JWT_AUDIENCE" envDefault:"ist-clients"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	RSAKeyBits      int           `env:"RSA_KEY_BITS" envDefault:"2048"`

	MaxRefreshTokensPerUser int           `env:"MAX_REFRESH_TOKENS_PER_USER" envDefault:"5"`
	LockoutThreshold        int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	CleanupInterval         time.Duration `env:"TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`
	CleanupGrace            time.Duration `env:"TOKEN_CLEANUP_GRACE" envDefault:"24h"`

	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"24h"`
	DefaultRole          string        `env:"DEFAULT_ROLE" envDefault:"STUDENT"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	RateLimitRPM      int    `env:"RATE_LIMIT_RPM" envDefault:"600"`
	TelemetryEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TelemetryInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`

	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	CORSAllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envDefault:"GET,POST,OPTIONS"`
	CORSAllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envDefault:"Authorization,Content-Type"`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.MaxRefreshTokensPerUser < 1 {
		cfg.MaxRefreshTokensPerUser = 1
	}
	if cfg.LockoutThreshold < 1 {
		cfg.LockoutThreshold = 1
	}
	if cfg.RSAKeyBits < 2048 {
		cfg.RSAKeyBits = 2048
	}

	return cfg, nil
}
