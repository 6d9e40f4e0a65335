// Package auth contiene los controllers de login local, registro y sesión.
package auth

import (
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	svc "github.com/dropDatabas3/refgate/internal/http/services/auth"
)

// Settings es la parte de la config que necesitan los controllers de sesión.
type Settings struct {
	Cookie      helpers.CookieConfig
	RedirectURL string // destino tras login/registro/logout; default "/"
}

func (s Settings) redirectURL() string {
	if s.RedirectURL == "" {
		return "/"
	}
	return s.RedirectURL
}

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Login     *LoginController
	Register  *RegisterController
	Logout    *LogoutController
	Providers *ProvidersController
	Me        *MeController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services, cfg Settings) *Controllers {
	return &Controllers{
		Login:     NewLoginController(s.Password, cfg),
		Register:  NewRegisterController(s.Password, cfg),
		Logout:    NewLogoutController(cfg),
		Providers: NewProvidersController(s.Providers),
		Me:        NewMeController(),
	}
}
