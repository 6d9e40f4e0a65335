// Package types define tipos de dominio compartidos entre paquetes:
// la taxonomía de errores que los servicios devuelven y la capa HTTP traduce.
package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifica una regla de dominio violada.
type ErrorCode string

const (
	CodeReferralExpired           ErrorCode = "ReferralExpired"
	CodeReferralInvalid           ErrorCode = "ReferralInvalid"
	CodeReferralAlreadyExists     ErrorCode = "ReferralAlreadyExists"
	CodeReferralNotFound          ErrorCode = "ReferralNotFound"
	CodeReferralOwnershipMismatch ErrorCode = "ReferralOwnershipMismatch"
	CodeUserAlreadyExists         ErrorCode = "UserAlreadyExists"
	CodeUserNotFound              ErrorCode = "UserNotFound"
	CodeInvalidCredentials        ErrorCode = "InvalidCredentials"
)

// DomainError es una violación de regla de negocio (400). Message es apto
// para mostrar al cliente.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string { return string(e.Code) + ": " + e.Message }

// Is compara por Code, así distintos mensajes del mismo código matchean.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithMessage devuelve una copia con otro mensaje.
func (e *DomainError) WithMessage(msg string) *DomainError {
	return &DomainError{Code: e.Code, Message: msg}
}

// ─── Errores de dominio predefinidos ───

var (
	ErrReferralExpired           = &DomainError{CodeReferralExpired, "Referrer ID has expired"}
	ErrReferralInvalid           = &DomainError{CodeReferralInvalid, "Referrer ID does not exists or has expired"}
	ErrReferralAlreadyExists     = &DomainError{CodeReferralAlreadyExists, "Referrer ID already exists, you can only have one referrer ID"}
	ErrReferralNotFound          = &DomainError{CodeReferralNotFound, "Referrer ID does not exists"}
	ErrReferralOwnershipMismatch = &DomainError{CodeReferralOwnershipMismatch, "Referrer ID does not belongs to the user"}
	ErrUserAlreadyExists         = &DomainError{CodeUserAlreadyExists, "User already exists"}
	ErrUserNotFound              = &DomainError{CodeUserNotFound, "User does not exists"}
	ErrInvalidCredentials        = &DomainError{CodeInvalidCredentials, "Incorrect email or password"}
)

// IsDomain indica si err es (o envuelve) un DomainError.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// ─── Autenticación ───

// AuthenticationError es una credencial inválida: esquema incorrecto (403),
// token mal formado, vencido o con firma inválida (401).
// Message nunca incluye detalles internos.
type AuthenticationError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication: %s: %v", e.Message, e.Err)
	}
	return "authentication: " + e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// InvalidCredential arma el 401 estándar.
func InvalidCredential(msg string, cause error) *AuthenticationError {
	return &AuthenticationError{Status: http.StatusUnauthorized, Message: msg, Err: cause}
}

// InvalidScheme arma el 403 para esquemas distintos de Bearer.
func InvalidScheme() *AuthenticationError {
	return &AuthenticationError{Status: http.StatusForbidden, Message: "Invalid token schema"}
}

// ErrUnauthorizedAccess: ruta protegida sin sesión válida (401).
var ErrUnauthorizedAccess = errors.New("unauthorized access")

// ─── Validación ───

// FieldError describe un campo de entrada inválido.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError es una entrada mal formada (422).
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// Invalid arma un ValidationError de un solo campo.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// ─── Infraestructura ───

// InfrastructureError envuelve fallas de conectividad de store o cache (5xx).
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string { return "infrastructure: " + e.Op + ": " + e.Err.Error() }
func (e *InfrastructureError) Unwrap() error { return e.Err }

// Infra envuelve err como InfrastructureError. nil devuelve nil.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *InfrastructureError
	if errors.As(err, &ie) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructure indica si err es (o envuelve) un InfrastructureError.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
