package repository

import (
	"context"
	"time"
)

// User representa un usuario local del gateway.
// Identity es "<provider>:<externalId>" y es única; Email también.
type User struct {
	ID               string
	Email            string
	Identity         string
	Name             string
	PasswordHash     *string
	ReferralCodeUsed *string
	CreatedAt        time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email            string
	Identity         string
	Name             string
	PasswordHash     string // vacío = usuario externo (OAuth)
	ReferralCodeUsed string // vacío = sin referral
}

// Page opciones de paginación por offset.
type Page struct {
	Limit  int
	Offset int
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// Create crea un usuario.
	// Retorna *ConflictError si email o identity ya existen.
	Create(ctx context.Context, in CreateUserInput) (*User, error)

	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByIdentity retorna ErrNotFound si no existe.
	GetByIdentity(ctx context.Context, identity string) (*User, error)

	// Exists indica si hay un usuario con ese identity o ese email.
	Exists(ctx context.Context, identity, email string) (bool, error)

	// ListByReferralCode lista los usuarios registrados con un código, más el total.
	ListByReferralCode(ctx context.Context, code string, page Page) (int, []User, error)
}
