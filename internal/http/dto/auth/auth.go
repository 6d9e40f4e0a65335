// Package auth contiene los DTOs de login, registro y sesión.
package auth

import "time"

// LoginRequest es el form de POST /auth/login.
type LoginRequest struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// RegisterRequest es el body de POST /auth/register.
// El código de referido llega como "referrer_id", "referral_id" o "referralCode".
type RegisterRequest struct {
	Email         string  `json:"email" validate:"required,email,max=255"`
	Name          string  `json:"name" validate:"required,max=255"`
	Identity      string  `json:"identity" validate:"required,max=255"`
	Password      string  `json:"password" validate:"required,min=8"`
	ReferralID    *string `json:"referrer_id,omitempty"`
	Alias         *string `json:"referral_id,omitempty"`
	ReferralCamel *string `json:"referralCode,omitempty"`
}

// ReferralCode devuelve el primer código no vacío informado, si hay.
func (r RegisterRequest) ReferralCode() string {
	for _, v := range []*string{r.ReferralID, r.Alias, r.ReferralCamel} {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// MeResponse es el AuthContext visible para el cliente.
type MeResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Identity  string    `json:"identity,omitempty"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProviderItem es un método de login disponible.
type ProviderItem struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	AuthorizeURL string `json:"authorize_url,omitempty"`
}

// ProvidersResponse es la respuesta de GET /auth/providers.
type ProvidersResponse struct {
	Providers []ProviderItem `json:"providers"`
}
