// Package app arma el grafo de services, controllers y router a partir de
// dependencias ya abiertas (store, cache, codec). No abre conexiones.
package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/refgate/internal/cache"
	"github.com/dropDatabas3/refgate/internal/config"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	authctrl "github.com/dropDatabas3/refgate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/refgate/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/refgate/internal/http/controllers/oauth"
	refctrl "github.com/dropDatabas3/refgate/internal/http/controllers/referral"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	"github.com/dropDatabas3/refgate/internal/http/router"
	authsvc "github.com/dropDatabas3/refgate/internal/http/services/auth"
	healthsvc "github.com/dropDatabas3/refgate/internal/http/services/health"
	refsvc "github.com/dropDatabas3/refgate/internal/http/services/referral"
	"github.com/dropDatabas3/refgate/internal/jwt"
	"github.com/dropDatabas3/refgate/internal/oauth"
	"github.com/dropDatabas3/refgate/internal/rate"
	"github.com/dropDatabas3/refgate/internal/security/password"
)

// Deps son las dependencias crudas que necesita la app.
type Deps struct {
	Store    repository.Store
	Cache    cache.Client
	Codec    *jwt.Codec
	Hasher   password.Hasher
	Policy   password.Policy
	Registry *oauth.Registry

	Limiter rate.Limiter // nil = sin rate limit
	Metrics http.Handler // nil = sin /metrics
	Version string

	// Solo tests
	Now     func() time.Time
	NewCode func() (string, error)
}

// App es la aplicación cableada.
type App struct {
	Handler   http.Handler
	Referrals refsvc.Service
	Auth      authsvc.Services
}

// New cablea services, controllers y router.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Store == nil || deps.Cache == nil || deps.Codec == nil || deps.Hasher == nil {
		return nil, errors.New("app: store, cache, codec and hasher are required")
	}

	// 1. Services
	referrals := refsvc.NewService(refsvc.Deps{
		Store:      deps.Store,
		Cache:      refsvc.NewCache(deps.Cache, cfg.CacheTTL()),
		DefaultTTL: cfg.Referral.DefaultTTL,
		Now:        deps.Now,
		NewCode:    deps.NewCode,
	})
	auth := authsvc.NewServices(authsvc.Deps{
		Store:     deps.Store,
		Hasher:    deps.Hasher,
		Policy:    deps.Policy,
		Referrals: referrals,
		Tokens:    deps.Codec,
		Registry:  deps.Registry,
		BasePath:  cfg.Server.BasePath,
	})
	health := healthsvc.NewServices(healthsvc.Deps{
		Store:   deps.Store,
		Cache:   deps.Cache,
		Version: deps.Version,
	})

	// 2. Controllers
	cookie := helpers.CookieConfig{
		Name:     cfg.Cookie.Name,
		SameSite: helpers.ParseSameSite(cfg.Cookie.SameSite),
		HTTPOnly: cfg.Cookie.HTTPOnly,
		Secure:   cfg.Cookie.Secure,
		TTL:      cfg.TokenTTL(),
	}
	authControllers := authctrl.NewControllers(auth, authctrl.Settings{
		Cookie:      cookie,
		RedirectURL: cfg.Server.BaseURL,
	})
	oauthControllers := oauthctrl.NewControllers(deps.Registry, auth.Provisioning, deps.Codec, oauthctrl.Settings{
		SSR:         cfg.SSR(),
		Cookie:      cookie,
		RedirectURL: cfg.Server.BaseURL,
		StatePath:   cfg.Server.BasePath + "/oauth2",
	})

	// 3. Router
	handler := router.New(router.Deps{
		BasePath:    cfg.Server.BasePath,
		Health:      healthctrl.NewControllers(health),
		Auth:        authControllers,
		OAuth:       oauthControllers,
		Referral:    refctrl.NewControllers(referrals),
		Store:       deps.Store,
		Decoder:     deps.Codec,
		Provisioner: auth.Provisioning,
		CookieName:  cookie.SessionCookieName(),
		RateLimiter: deps.Limiter,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:     deps.Metrics,
	})

	return &App{Handler: handler, Referrals: referrals, Auth: auth}, nil
}
