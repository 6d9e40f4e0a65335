package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica una violación de unicidad (email, identity, código, owner).
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indica que el store o el cache no están accesibles.
	// Se traduce a 5xx en el borde HTTP, nunca a 400.
	ErrUnavailable = errors.New("store unavailable")
)

// Nombres de las restricciones de unicidad conocidas.
const (
	ConstraintUserEmail     = "uq__users__email"
	ConstraintUserIdentity  = "uq__users__identity"
	ConstraintReferralCode  = "uq__referrers__referrer_id"
	ConstraintReferralOwner = "uq__referrers__user_id"
)

// ConflictError reporta qué restricción de unicidad fue violada.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict on %s: %v", e.Constraint, e.Err)
	}
	return "conflict on " + e.Constraint
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

// Conflict construye un *ConflictError para la restricción indicada.
func Conflict(constraint string, cause error) error {
	return &ConflictError{Constraint: constraint, Err: cause}
}

// Unavailable envuelve un error de infraestructura.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, cause)
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsConflictOn verifica si el error es una violación de la restricción indicada.
func IsConflictOn(err error, constraint string) bool {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Constraint == constraint
	}
	return false
}

// IsUnavailable verifica si el error es de infraestructura.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
