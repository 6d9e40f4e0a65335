package auth

import "net/http"

// LogoutController borra la cookie de sesión.
type LogoutController struct {
	cfg Settings
}

// NewLogoutController crea un nuevo controller de logout.
func NewLogoutController(cfg Settings) *LogoutController {
	return &LogoutController{cfg: cfg}
}

// Logout maneja GET /auth/logout y GET /oauth2/logout.
func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, c.cfg.Cookie.ClearSessionCookie())
	http.Redirect(w, r, c.cfg.redirectURL(), http.StatusSeeOther)
}
