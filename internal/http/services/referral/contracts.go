// Package referral contiene el ReferralCache y el servicio de códigos de referral
// que gatean el registro de usuarios.
package referral

import (
	"context"
	"time"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
)

// Service define las operaciones sobre códigos de referral.
type Service interface {
	// Validate resuelve un código para registro: cache primero, store como fallback.
	Validate(ctx context.Context, code string) (*repository.Referral, error)

	// ResolveOwner devuelve el usuario dueño de una sesión por su email.
	// Sin usuario devuelve types.ErrUnauthorizedAccess.
	ResolveOwner(ctx context.Context, email string) (*repository.User, error)

	// CreateForOwner genera un código nuevo para ownerID. untilAt nil = ahora + DefaultTTL.
	CreateForOwner(ctx context.Context, ownerID string, untilAt *time.Time) (*repository.Referral, error)

	// DeleteForOwner borra el código del dueño y lo expulsa del cache.
	DeleteForOwner(ctx context.Context, ownerID, code string) error

	// GetActiveByEmail devuelve el referral activo del usuario con ese email.
	GetActiveByEmail(ctx context.Context, email string) (*repository.Referral, error)

	// ListReferrals pagina los usuarios registrados con code.
	ListReferrals(ctx context.Context, code string, page repository.Page) (int, []repository.User, error)

	// SweepExpired borra los referrals vencidos y los expulsa del cache.
	SweepExpired(ctx context.Context) ([]string, error)
}
