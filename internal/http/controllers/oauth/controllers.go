// Package oauth contiene los controllers del flujo OAuth2 con proveedores externos.
package oauth

import (
	"time"

	"github.com/dropDatabas3/refgate/internal/http/helpers"
	svc "github.com/dropDatabas3/refgate/internal/http/services/auth"
	"github.com/dropDatabas3/refgate/internal/oauth"
)

// Settings configura el flujo. Se arma una vez al inicio.
type Settings struct {
	SSR         bool // true: el gateway setea la cookie y redirige; false: responde JSON
	Cookie      helpers.CookieConfig
	RedirectURL string        // destino tras el callback o ante fallas; default "/"
	StatePath   string        // path de la cookie de state, ej. "/api/v1/oauth2"
	StateTTL    time.Duration // default 10m
}

// Controllers agrupa todos los controllers del dominio oauth.
type Controllers struct {
	Flow *FlowController
}

// NewControllers crea el agregador de controllers oauth.
func NewControllers(registry *oauth.Registry, provisioning svc.ProvisioningService, tokens svc.TokenIssuer, cfg Settings) *Controllers {
	return &Controllers{
		Flow: NewFlowController(registry, provisioning, tokens, cfg),
	}
}
