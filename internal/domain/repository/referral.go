package repository

import (
	"context"
	"time"
)

// Referral es un código de invitación con vencimiento, propiedad de un usuario.
// Hay como máximo una fila por owner y el código es globalmente único.
type Referral struct {
	ID          string
	OwnerUserID string
	Code        string
	CreatedAt   time.Time
	UntilAt     time.Time
}

// Active indica si el referral sigue vigente en now.
func (r Referral) Active(now time.Time) bool {
	return r.UntilAt.After(now)
}

// CreateReferralInput contiene los datos para crear un referral.
type CreateReferralInput struct {
	OwnerUserID string
	Code        string
	UntilAt     time.Time
}

// ReferralRepository define operaciones sobre referrals.
type ReferralRepository interface {
	// Create inserta un referral. Si el owner tiene una fila vencida se reemplaza
	// en la misma operación. Retorna *ConflictError (ConstraintReferralOwner) si
	// el owner ya tiene uno vigente, o (ConstraintReferralCode) si el código existe.
	Create(ctx context.Context, in CreateReferralInput, now time.Time) (*Referral, error)

	// GetByCode retorna ErrNotFound si no existe (vigente o no).
	GetByCode(ctx context.Context, code string) (*Referral, error)

	// GetActiveByCode retorna ErrNotFound si no existe o si UntilAt <= now.
	GetActiveByCode(ctx context.Context, code string, now time.Time) (*Referral, error)

	// GetByOwner retorna ErrNotFound si el usuario no tiene referral.
	GetByOwner(ctx context.Context, ownerUserID string) (*Referral, error)

	// ExistsActiveForOwner indica si el usuario tiene un referral vigente.
	ExistsActiveForOwner(ctx context.Context, ownerUserID string, now time.Time) (bool, error)

	// Delete elimina el referral (owner, code). Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, ownerUserID, code string) error

	// DeleteExpired elimina los referrals vencidos y retorna sus códigos.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}
