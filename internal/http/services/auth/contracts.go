// Package auth contiene los servicios de autenticación: alta de usuarios
// externos (OAuth) y registro/login por email y password.
package auth

import (
	"context"
	"time"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
)

// ProvisioningService crea el usuario local la primera vez que se ve una identidad externa.
type ProvisioningService interface {
	// Ensure devuelve el usuario de c, creándolo si no existe. created indica
	// si esta llamada insertó la fila. Es idempotente ante callbacks concurrentes.
	Ensure(ctx context.Context, c claims.IdentityClaims) (u *repository.User, created bool, err error)
}

// PasswordService define el registro y login local.
type PasswordService interface {
	// Register crea un usuario con password y emite su sesión.
	Register(ctx context.Context, in RegisterInput) (*Session, error)

	// Login verifica credenciales y emite una sesión. Email inexistente y
	// password incorrecta devuelven el mismo error.
	Login(ctx context.Context, email, password string) (*Session, error)
}

// ProvidersService lista los métodos de login disponibles.
type ProvidersService interface {
	Providers(ctx context.Context) []ProviderInfo
}

// RegisterInput son los datos de alta local.
type RegisterInput struct {
	Email        string
	Name         string
	Identity     string // vacío = "local:<email>"
	Password     string
	ReferralCode string // vacío = sin referral
}

// Session es un token de sesión recién emitido.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *repository.User
}

// TokenIssuer firma payloads de sesión. *jwt.Codec lo implementa.
type TokenIssuer interface {
	CreateWithExpiry(payload map[string]any) (string, time.Time, error)
}

// ReferralValidator resuelve un código de referral para el registro.
type ReferralValidator interface {
	Validate(ctx context.Context, code string) (*repository.Referral, error)
}

// SessionPayload es el payload mínimo de sesión para un usuario local.
func SessionPayload(u *repository.User) map[string]any {
	return map[string]any{
		"id":       u.ID,
		"identity": u.Identity,
		"email":    u.Email,
	}
}
