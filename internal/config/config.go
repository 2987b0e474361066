// Package config loads server settings from the environment.
//
// An optional .env file in the working directory is read first (godotenv);
// real environment variables always win over it. The struct is then filled
// by envdecode from the `env` tags below.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// DevSecret is the signing secret used when SECRET_KEY is unset. It is only
// fit for local development; main logs a warning when it is in effect.
const DevSecret = "conduit-development-secret"

type Config struct {
	Port   int    `env:"PORT,default=8080"`
	DBPath string `env:"DB_PATH,default=data/conduit.db"`

	SecretKey   string        `env:"SECRET_KEY,default=conduit-development-secret"`
	TokenScheme string        `env:"TOKEN_SCHEME,default=Token"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,default=1440h"`
	BcryptCost  int           `env:"BCRYPT_COST,default=12"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	RedisURL    string        `env:"REDIS_URL"`
	TagCacheTTL time.Duration `env:"TAG_CACHE_TTL,default=5m"`

	CORSOrigins   string  `env:"CORS_ORIGINS,default=*"`
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT,default=5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST,default=10"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Load reads .env (if present) and the environment, then validates.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the environment without touching .env.
func FromEnv() (Config, error) {
	var cfg Config
	// Defaults still apply when none of the variables are set.
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: decoding environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if len(c.SecretKey) < 16 {
		problems = append(problems, "SECRET_KEY must be at least 16 characters")
	}
	if strings.TrimSpace(c.TokenScheme) == "" || strings.ContainsAny(c.TokenScheme, " \t") {
		problems = append(problems, "TOKEN_SCHEME must be a single word")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		problems = append(problems, "AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not debug, info, warn or error", s)
	}
	return level, nil
}
