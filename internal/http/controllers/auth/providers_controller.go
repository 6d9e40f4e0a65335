package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/refgate/internal/http/dto/auth"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	svc "github.com/dropDatabas3/refgate/internal/http/services/auth"
)

// ProvidersController lista los métodos de login.
type ProvidersController struct {
	service svc.ProvidersService
}

// NewProvidersController crea un nuevo controller de providers.
func NewProvidersController(service svc.ProvidersService) *ProvidersController {
	return &ProvidersController{service: service}
}

// List maneja GET /auth/providers
func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	infos := c.service.Providers(r.Context())
	out := dto.ProvidersResponse{Providers: make([]dto.ProviderItem, 0, len(infos))}
	for _, p := range infos {
		out.Providers = append(out.Providers, dto.ProviderItem{
			Name:         p.Name,
			Kind:         p.Kind,
			AuthorizeURL: p.AuthorizeURL,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
