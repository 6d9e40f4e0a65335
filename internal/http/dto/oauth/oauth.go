// Package oauth contiene los DTOs del flujo OAuth2 en modo token.
package oauth

// AuthorizeResponse devuelve la URL del proveedor al cliente.
type AuthorizeResponse struct {
	URL string `json:"url"`
}

// TokenResponse es el resultado del intercambio en modo token.
type TokenResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	Claims    map[string]any `json:"claims"`
}
