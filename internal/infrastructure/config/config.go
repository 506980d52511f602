package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

// minSecretLength is the shortest signing secret accepted outside development.
const minSecretLength = 32

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`

	Auth  AuthConfig
	Admin AdminConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	JWTSecret          string        `env:"AUTH_JWT_SECRET"`
	TokenTTLSeconds    int64         `env:"AUTH_TOKEN_TTL_SECONDS,    default=86400"`
	BcryptCost         int           `env:"AUTH_BCRYPT_COST,          default=10"`
	HashWorkers        int           `env:"AUTH_HASH_WORKERS,         default=0"`
	StoreTimeout       time.Duration `env:"AUTH_STORE_TIMEOUT,        default=3s"`
	StudentEmailSuffix string        `env:"AUTH_STUDENT_EMAIL_SUFFIX, default=-edu.ma"`
}

// TokenTTL returns the token lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLSeconds) * time.Second
}

// AdminConfig holds the optional bootstrap administrator. Both fields must be
// set for the account to be created.
type AdminConfig struct {
	Username string `env:"ADMIN_BOOTSTRAP_USERNAME"`
	Password string `env:"ADMIN_BOOTSTRAP_PASSWORD"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=marketplace"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig and
// validates the result.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects configurations the service cannot safely start with.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Auth.JWTSecret == "":
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	case !c.IsDevelopment() && len(c.Auth.JWTSecret) < minSecretLength:
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.Auth.TokenTTLSeconds <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL_SECONDS must be positive"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.HashWorkers < 0 {
		errs = append(errs, errors.New("AUTH_HASH_WORKERS must not be negative"))
	}
	if c.Auth.StoreTimeout <= 0 {
		errs = append(errs, errors.New("AUTH_STORE_TIMEOUT must be positive"))
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_BOOTSTRAP_USERNAME and ADMIN_BOOTSTRAP_PASSWORD must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
