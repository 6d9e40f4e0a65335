package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/refgate/internal/http/dto/auth"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	"github.com/dropDatabas3/refgate/internal/http/middlewares"
)

// MeController expone el AuthContext del request.
type MeController struct{}

// NewMeController crea un nuevo controller de /me.
func NewMeController() *MeController { return &MeController{} }

// Me maneja GET /auth/me. Requiere RequireUser delante.
func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	ac := middlewares.GetAuth(r.Context())

	scopes := ac.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MeResponse{
		ID:        ac.UserID,
		Email:     ac.Claims.Email,
		Identity:  ac.Claims.Subject,
		Name:      ac.Claims.Name,
		Picture:   ac.Claims.Picture,
		Provider:  ac.Claims.Provider,
		Scopes:    scopes,
		ExpiresAt: ac.ExpiresAt.UTC(),
	})
}
