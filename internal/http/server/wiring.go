// Package server abre la infraestructura (store, cache, limiter, métricas),
// cablea la app y corre el servidor HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/refgate/internal/app"
	"github.com/dropDatabas3/refgate/internal/cache"
	"github.com/dropDatabas3/refgate/internal/config"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	apphttp "github.com/dropDatabas3/refgate/internal/http"
	"github.com/dropDatabas3/refgate/internal/jwt"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/oauth"
	"github.com/dropDatabas3/refgate/internal/oauth/github"
	"github.com/dropDatabas3/refgate/internal/oauth/google"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
	"github.com/dropDatabas3/refgate/internal/rate"
	"github.com/dropDatabas3/refgate/internal/security/password"
	"github.com/dropDatabas3/refgate/internal/store"
	"github.com/dropDatabas3/refgate/internal/store/pg"
)

// Runtime es la app cableada junto con la infraestructura que hay que cerrar.
type Runtime struct {
	App   *app.App
	Store repository.Store
	Cache cache.Client
}

// Close libera cache y store, en ese orden.
func (rt *Runtime) Close() error {
	var errs []string
	if rt.Cache != nil {
		if err := rt.Cache.Close(); err != nil {
			errs = append(errs, "cache: "+err.Error())
		}
	}
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			errs = append(errs, "store: "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Options ajusta Build. El valor cero sirve para producción.
type Options struct {
	Version  string
	Registry prometheus.Registerer // nil = default
	Gatherer prometheus.Gatherer   // nil = default
}

// Build abre store y cache según cfg y arma la app completa.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	log := logger.From(ctx).With(logger.Component("server"), logger.Op("Build"))

	// 1. Store
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Store: st}
	log.Info("store ready", logger.Driver(st.Driver()))

	// 2. Cache
	cc, err := OpenCache(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Cache = cc
	log.Info("cache ready", logger.Driver(cfg.Cache.Driver))

	// 3. Tokens y passwords
	codec, err := jwt.NewCodec(cfg.Token.Secret, cfg.Token.Algorithm, cfg.TokenTTL())
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("token codec: %w", err)
	}
	hasher, err := password.NewHasher(cfg.Password.Algorithm, cfg.Password.BcryptCost)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	policy := password.Policy{MinLength: cfg.Password.MinLength}
	if p := strings.TrimSpace(cfg.Password.BlacklistPath); p != "" {
		bl, err := password.LoadBlacklist(p)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("password blacklist: %w", err)
		}
		policy.Blacklist = bl
		log.Info("password blacklist loaded", logger.Count(bl.Len()))
	}

	// 4. Providers OAuth
	registry, err := BuildRegistry(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	log.Info("oauth providers", logger.Any("providers", registry.Names()))

	// 5. Rate limit: Redis si el cache es Redis, si no en memoria
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		limiter = rate.New(rate.Config{Max: cfg.Rate.Limit, Window: cfg.Rate.Window}, redisClient(cc))
	}

	// 6. Métricas
	if err := metrics.RegisterAuth(opts.Registry); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	metricsHandler, err := apphttp.RegisterMetrics(apphttp.MetricsConfig{
		Registry: opts.Registry,
		Gatherer: opts.Gatherer,
		Pool:     poolOf(st),
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 7. App
	a, err := app.New(cfg, app.Deps{
		Store:    st,
		Cache:    cc,
		Codec:    codec,
		Hasher:   hasher,
		Policy:   policy,
		Registry: registry,
		Limiter:  limiter,
		Metrics:  metricsHandler,
		Version:  opts.Version,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.App = a
	return rt, nil
}

// OpenStore abre el store configurado.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	pgc := cfg.Store.Postgres
	st, err := store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.DatabaseURL(),
		Pool: pg.PoolConfig{
			MaxConns:        pgc.MaxConns,
			MinConns:        pgc.MinConns,
			ConnMaxLifetime: pgc.ConnMaxLifetime,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return st, nil
}

// OpenCache abre el cache configurado.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	rc := cfg.Cache.Redis
	cc, err := cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Driver,
		URL:      rc.URL,
		Host:     rc.Host,
		Port:     rc.Port,
		Password: rc.Password,
		DB:       rc.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return cc, nil
}

// BuildRegistry registra los providers con credenciales completas.
func BuildRegistry(cfg *config.Config) (*oauth.Registry, error) {
	var providers []oauth.Provider
	if gh := cfg.OAuth.GitHub; gh.Enabled() {
		providers = append(providers, github.New(github.Config{
			ClientID:     gh.ClientID,
			ClientSecret: gh.ClientSecret,
			RedirectURL:  gh.RedirectURL,
			Scopes:       gh.Scopes,
		}))
	}
	if g := cfg.OAuth.Google; g.Enabled() {
		providers = append(providers, google.New(google.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scopes:       g.Scopes,
		}))
	}
	return oauth.NewRegistry(providers...)
}

func redisClient(c cache.Client) *redis.Client {
	if r, ok := c.(interface{ Raw() *redis.Client }); ok {
		return r.Raw()
	}
	return nil
}

func poolOf(st repository.Store) func() *pgxpool.Pool {
	ps, ok := st.(interface{ Pool() *pgxpool.Pool })
	if !ok {
		return nil
	}
	return ps.Pool
}

// Handler es un atajo para tests: la app sin abrir un listener.
func (rt *Runtime) Handler() http.Handler { return rt.App.Handler }
