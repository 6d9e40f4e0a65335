// Package config arma la configuración inmutable del gateway: defaults,
// luego config.yaml (opcional), luego variables de entorno.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/refgate/internal/jwt"
	tokens "github.com/dropDatabas3/refgate/internal/security/token"
)

const (
	EnvLocal      = "local"
	EnvStaging    = "staging"
	EnvProduction = "production"

	defaultPassword = "changethis"
)

type Config struct {
	App struct {
		// local | staging | production
		Env         string `yaml:"env" env:"APP_ENV"`
		ProjectName string `yaml:"project_name" env:"PROJECT_NAME"`
		LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	} `yaml:"app"`

	Server struct {
		Addr               string        `yaml:"addr" env:"SERVER_ADDR"`
		BasePath           string        `yaml:"base_path" env:"BASE_PATH_PREFIX"`
		BaseURL            string        `yaml:"base_url" env:"BASE_URL"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
		ReadTimeout        time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout       time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Token struct {
		Secret        string `yaml:"secret" env:"SECRET_KEY"`
		Algorithm     string `yaml:"algorithm" env:"JWT_ALGORITHM"`
		ExpireMinutes int    `yaml:"expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	} `yaml:"token"`

	Cookie struct {
		Name     string `yaml:"name" env:"COOKIE_NAME"`
		SameSite string `yaml:"samesite" env:"COOKIE_SAMESITE"`
		HTTPOnly bool   `yaml:"httponly" env:"COOKIE_HTTPONLY"`
		Secure   bool   `yaml:"secure" env:"COOKIE_SECURE"`
	} `yaml:"cookie"`

	OAuth struct {
		// "" = según entorno (off en local/staging, on en production)
		SSR    string   `yaml:"ssr" env:"OAUTH2_SSR"`
		GitHub Provider `yaml:"github" envPrefix:"OAUTH2_GITHUB_"`
		Google Provider `yaml:"google" envPrefix:"OAUTH2_GOOGLE_"`
	} `yaml:"oauth"`

	Store struct {
		Driver      string `yaml:"driver" env:"STORE_DRIVER"`
		DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
		Postgres    struct {
			Host            string        `yaml:"host" env:"POSTGRES_HOST"`
			Port            int           `yaml:"port" env:"POSTGRES_PORT"`
			User            string        `yaml:"user" env:"POSTGRES_USER"`
			Password        string        `yaml:"password" env:"POSTGRES_PASSWORD"`
			DB              string        `yaml:"db" env:"POSTGRES_DB"`
			SSLMode         string        `yaml:"sslmode" env:"POSTGRES_SSLMODE"`
			MaxConns        int           `yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
			MinConns        int           `yaml:"min_conns" env:"POSTGRES_MIN_CONNS"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"POSTGRES_CONN_MAX_LIFETIME"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	Cache struct {
		Driver string `yaml:"driver" env:"CACHE_DRIVER"`
		Prefix string `yaml:"prefix" env:"CACHE_PREFIX"`
		// TTL de las entradas de referral, en segundos
		TTLSeconds int `yaml:"ttl_seconds" env:"REDIS_TTL"`
		Redis      struct {
			URL      string `yaml:"url" env:"REDIS_URL"`
			Host     string `yaml:"host" env:"REDIS_HOST"`
			Port     int    `yaml:"port" env:"REDIS_PORT"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Password struct {
		Algorithm     string `yaml:"algorithm" env:"PASSWORD_ALGORITHM"`
		BcryptCost    int    `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
		MinLength     int    `yaml:"min_length" env:"PASSWORD_MIN_LENGTH"`
		BlacklistPath string `yaml:"blacklist_path" env:"PASSWORD_BLACKLIST_PATH"`
	} `yaml:"password"`

	Rate struct {
		Enabled bool          `yaml:"enabled" env:"RATE_ENABLED"`
		Limit   int           `yaml:"limit" env:"RATE_LIMIT"`
		Window  time.Duration `yaml:"window" env:"RATE_WINDOW"`
	} `yaml:"rate"`

	Referral struct {
		DefaultTTL time.Duration `yaml:"default_ttl" env:"REFERRAL_DEFAULT_TTL"`
	} `yaml:"referral"`

	// Warnings son avisos no fatales detectados al cargar (se loguean al arrancar).
	Warnings []string `yaml:"-"`
}

// Provider es la configuración de un cliente OAuth2.
type Provider struct {
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURL  string   `yaml:"redirect_url" env:"REDIRECT_URL"`
	Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
}

// Enabled indica si hay credenciales completas.
func (p Provider) Enabled() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

func defaults() *Config {
	var c Config
	c.App.Env = EnvLocal
	c.App.ProjectName = "refgate"
	c.App.LogLevel = "info"

	c.Server.Addr = ":8080"
	c.Server.BasePath = "/api/v1"
	c.Server.BaseURL = "/"
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second

	c.Token.Algorithm = "HS256"
	c.Token.ExpireMinutes = 60 * 24 * 8 // 8 días

	c.Cookie.Name = "Authorization"
	c.Cookie.SameSite = "lax"
	c.Cookie.HTTPOnly = true

	c.OAuth.GitHub.Scopes = []string{"user:email"}
	c.OAuth.Google.Scopes = []string{"openid", "profile", "email"}

	c.Store.Driver = "postgres"
	c.Store.Postgres.Port = 5432
	c.Store.Postgres.SSLMode = "disable"
	c.Store.Postgres.MaxConns = 10
	c.Store.Postgres.ConnMaxLifetime = 30 * time.Minute

	c.Cache.Driver = "redis"
	c.Cache.TTLSeconds = 60 * 60
	c.Cache.Redis.Port = 6379

	c.Password.Algorithm = "bcrypt"
	c.Password.BcryptCost = 10
	c.Password.MinLength = 8

	c.Rate.Enabled = true
	c.Rate.Limit = 10
	c.Rate.Window = time.Minute

	c.Referral.DefaultTTL = 14 * 24 * time.Hour
	return &c
}

// Load aplica defaults, luego el YAML de path (si path != "") y por último
// las variables de entorno. Valida el resultado.
func Load(path string) (*Config, error) {
	c := defaults()

	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		// blacklist relativa al directorio del YAML
		if p := strings.TrimSpace(c.Password.BlacklistPath); p != "" && !filepath.IsAbs(p) {
			c.Password.BlacklistPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
		}
	}

	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	if c.App.Env == "" {
		c.App.Env = EnvLocal
	}
	c.Token.Algorithm = strings.ToUpper(strings.TrimSpace(c.Token.Algorithm))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Password.Algorithm = strings.ToLower(strings.TrimSpace(c.Password.Algorithm))
	c.Server.BasePath = "/" + strings.Trim(strings.TrimSpace(c.Server.BasePath), "/")
	if c.Server.BasePath == "/" {
		c.Server.BasePath = ""
	}

	// En local se tolera un secreto efímero; los tokens no sobreviven reinicios.
	if c.Token.Secret == "" && c.IsLocal() {
		if s, err := tokens.GenerateOpaqueToken(32); err == nil {
			c.Token.Secret = s
			c.Warnings = append(c.Warnings, "SECRET_KEY not set, using a random per-process secret")
		}
	}
}

// Validate rechaza configuraciones inseguras o incompletas.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{EnvLocal, EnvStaging, EnvProduction}, c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be local, staging or production, got %q", c.App.Env))
	}

	if c.Token.Secret == "" {
		errs = append(errs, errors.New("SECRET_KEY is required outside local"))
	}
	c.checkDefaultSecret("SECRET_KEY", c.Token.Secret, &errs)
	c.checkDefaultSecret("POSTGRES_PASSWORD", c.Store.Postgres.Password, &errs)

	if !slices.Contains(jwt.SupportedAlgorithms, c.Token.Algorithm) {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q not supported", c.Token.Algorithm))
	}
	if c.Token.ExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, errors.New("REDIS_TTL must be positive"))
	}
	if c.Referral.DefaultTTL <= 0 {
		errs = append(errs, errors.New("REFERRAL_DEFAULT_TTL must be positive"))
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "lax", "strict", "none":
	default:
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE %q must be lax, strict or none", c.Cookie.SameSite))
	}
	if strings.EqualFold(c.Cookie.SameSite, "none") && !c.Cookie.Secure {
		c.Warnings = append(c.Warnings, "COOKIE_SAMESITE=none without COOKIE_SECURE is rejected by browsers")
	}

	switch c.Store.Driver {
	case "postgres", "pg", "postgresql":
		if c.DatabaseURL() == "" {
			errs = append(errs, errors.New("DATABASE_URL or POSTGRES_HOST/POSTGRES_USER are required for the postgres store"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q not supported", c.Store.Driver))
	}

	switch c.Cache.Driver {
	case "redis":
		if c.Cache.Redis.URL == "" && c.Cache.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_URL or REDIS_HOST is required for the redis cache"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("CACHE_DRIVER %q not supported", c.Cache.Driver))
	}

	switch c.Password.Algorithm {
	case "bcrypt":
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.Password.BcryptCost))
		}
	case "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_ALGORITHM %q not supported", c.Password.Algorithm))
	}

	if c.Rate.Enabled && (c.Rate.Limit <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT and RATE_WINDOW must be positive when rate limiting is enabled"))
	}

	if _, err := strconv.ParseBool(orDefault(c.OAuth.SSR, "false")); err != nil {
		errs = append(errs, fmt.Errorf("OAUTH2_SSR %q is not a boolean", c.OAuth.SSR))
	}
	if !c.OAuth.GitHub.Enabled() {
		c.Warnings = append(c.Warnings, "no GitHub OAuth2 credentials found, provider disabled")
	}
	if !c.OAuth.Google.Enabled() {
		c.Warnings = append(c.Warnings, "no Google OAuth2 credentials found, provider disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) checkDefaultSecret(name, value string, errs *[]error) {
	if value != defaultPassword {
		return
	}
	msg := fmt.Sprintf("the value of %s is %q, change it at least for deployments", name, defaultPassword)
	if c.IsLocal() {
		c.Warnings = append(c.Warnings, msg)
		return
	}
	*errs = append(*errs, errors.New(msg))
}

// IsLocal indica APP_ENV=local.
func (c *Config) IsLocal() bool { return c.App.Env == EnvLocal }

// SSR indica si el gateway hace el intercambio OAuth y setea la cookie él mismo.
func (c *Config) SSR() bool {
	if c.OAuth.SSR == "" {
		return c.App.Env == EnvProduction
	}
	v, _ := strconv.ParseBool(c.OAuth.SSR)
	return v
}

// TokenTTL es la vigencia de los tokens de sesión.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Token.ExpireMinutes) * time.Minute
}

// CacheTTL es la vigencia de las entradas de referral en cache.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// DatabaseURL devuelve DATABASE_URL o la arma a partir de POSTGRES_*.
func (c *Config) DatabaseURL() string {
	if u := strings.TrimSpace(c.Store.DatabaseURL); u != "" {
		return u
	}
	pg := c.Store.Postgres
	if pg.Host == "" || pg.User == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(pg.User, pg.Password),
		Host:   fmt.Sprintf("%s:%d", pg.Host, pg.Port),
		Path:   "/" + pg.DB,
	}
	if pg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {pg.SSLMode}}.Encode()
	}
	return u.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
