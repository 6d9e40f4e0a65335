package auth

import (
	"context"

	"github.com/dropDatabas3/refgate/internal/oauth"
)

// ProviderInfo describe un método de login para la UI.
type ProviderInfo struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"` // "password" | "oauth2"
	AuthorizeURL string `json:"authorize_url,omitempty"`
}

// ProvidersDeps contiene las dependencias para el listado de providers.
type ProvidersDeps struct {
	Registry *oauth.Registry
	BasePath string // prefijo de rutas, ej. "/api/v1"
}

type providersService struct {
	deps ProvidersDeps
}

// NewProvidersService crea el servicio de discovery de providers.
func NewProvidersService(deps ProvidersDeps) ProvidersService {
	return &providersService{deps: deps}
}

// Providers devuelve password siempre y luego los providers OAuth en orden alfabético.
func (s *providersService) Providers(_ context.Context) []ProviderInfo {
	names := s.deps.Registry.Names()
	out := make([]ProviderInfo, 0, len(names)+1)
	out = append(out, ProviderInfo{Name: "password", Kind: "password"})
	for _, n := range names {
		out = append(out, ProviderInfo{
			Name:         n,
			Kind:         "oauth2",
			AuthorizeURL: s.deps.BasePath + "/oauth2/" + n + "/authorize",
		})
	}
	return out
}
