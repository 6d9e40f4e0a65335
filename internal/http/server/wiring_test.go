package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/refgate/internal/config"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = config.EnvLocal
	cfg.Server.BasePath = "/api/v1"
	cfg.Server.BaseURL = "/"
	cfg.Token.Secret = "wiring-secret"
	cfg.Token.Algorithm = "HS256"
	cfg.Token.ExpireMinutes = 5
	cfg.Cookie.SameSite = "lax"
	cfg.Store.Driver = "memory"
	cfg.Cache.Driver = "memory"
	cfg.Cache.TTLSeconds = 60
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	cfg.Password.MinLength = 8
	cfg.Rate.Enabled = true
	cfg.Rate.Limit = 5
	cfg.Rate.Window = time.Minute
	cfg.Referral.DefaultTTL = time.Hour
	return cfg
}

func TestBuild_MemoryDrivers(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt, err := Build(context.Background(), memoryConfig(), Options{Version: "test", Registry: reg, Gatherer: reg})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	rr := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "test", rr.Header().Get("X-Service-Version"))

	rr = httptest.NewRecorder()
	rt.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")

	rr = httptest.NewRecorder()
	rt.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/providers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"providers":[{"name":"password","kind":"password"}]}`, rr.Body.String())
}

func TestBuildRegistry(t *testing.T) {
	cfg := memoryConfig()
	reg, err := BuildRegistry(cfg)
	require.NoError(t, err)
	assert.Empty(t, reg.Names())

	cfg.OAuth.GitHub.ClientID = "id"
	cfg.OAuth.GitHub.ClientSecret = "secret"
	cfg.OAuth.Google.ClientID = "gid"
	reg, err = BuildRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"github"}, reg.Names())

	cfg.OAuth.Google.ClientSecret = "gsecret"
	reg, err = BuildRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "google-oauth2"}, reg.Names())
}

func TestBuild_RejectsBadStoreDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "mongo"
	_, err := Build(context.Background(), cfg, Options{Registry: prometheus.NewRegistry()})
	require.Error(t, err)
}
