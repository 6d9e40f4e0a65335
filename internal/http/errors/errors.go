// Package errors traduce los errores de dominio a respuestas HTTP
// {error, error_description[, fields]}.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/oauth"
)

// AppError es la forma de error que ve el cliente.
type AppError struct {
	Status      int                `json:"-"`
	Title       string             `json:"error"`
	Description string             `json:"error_description"`
	Fields      []types.FieldError `json:"fields,omitempty"`
	Header      http.Header        `json:"-"`
	Cause       error              `json:"-"` // solo logs
}

// WithDescription devuelve una copia con otra descripción.
func (e *AppError) WithDescription(desc string) *AppError {
	out := *e
	out.Description = desc
	return &out
}

// WithCause devuelve una copia con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	out := *e
	out.Cause = err
	return &out
}

func newErr(status int, desc string) *AppError {
	return &AppError{Status: status, Title: http.StatusText(status), Description: desc}
}

var (
	ErrBadRequest         = newErr(http.StatusBadRequest, "Invalid request")
	ErrUnauthorized       = newErr(http.StatusUnauthorized, "Could not validate credentials")
	ErrTokenMissing       = newErr(http.StatusUnauthorized, "Token not provided")
	ErrNotFound           = newErr(http.StatusNotFound, "Resource not found")
	ErrMethodNotAllowed   = newErr(http.StatusMethodNotAllowed, "Method not allowed")
	ErrRateLimitExceeded  = newErr(http.StatusTooManyRequests, "Too many requests, retry later")
	ErrServiceUnavailable = newErr(http.StatusServiceUnavailable, "A backing service is unavailable")
	ErrInternal           = newErr(http.StatusInternalServerError, "Unexpected error")

	ErrValidation = &AppError{
		Status:      http.StatusUnprocessableEntity,
		Title:       "Validation error",
		Description: "Invalid input data",
	}
)

// FromError mapea cualquier error a un AppError. Nunca expone la causa.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var app *AppError
	if stderrors.As(err, &app) {
		return app
	}

	var dom *types.DomainError
	if stderrors.As(err, &dom) {
		return ErrBadRequest.WithDescription(dom.Message).WithCause(err)
	}

	var ve *types.ValidationError
	if stderrors.As(err, &ve) {
		out := ErrValidation.WithCause(err)
		out.Fields = ve.Fields
		return out
	}

	var ae *types.AuthenticationError
	if stderrors.As(err, &ae) {
		out := newErr(ae.Status, ae.Message).WithCause(err)
		if ae.Status == http.StatusUnauthorized {
			out.Header = http.Header{"WWW-Authenticate": {"Bearer"}}
		}
		return out
	}

	if stderrors.Is(err, types.ErrUnauthorizedAccess) {
		return ErrUnauthorized.WithCause(err)
	}
	if stderrors.Is(err, oauth.ErrUnknownProvider) {
		return ErrNotFound.WithDescription("Unknown provider").WithCause(err)
	}
	if types.IsInfrastructure(err) {
		return ErrServiceUnavailable.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

// WriteError escribe la respuesta para err.
func WriteError(w http.ResponseWriter, err error) {
	app := FromError(err)
	if app == nil {
		app = ErrInternal
	}
	for k, vs := range app.Header {
		for _, v := range vs {
			w.Header().Set(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(app.Status)
	_ = json.NewEncoder(w).Encode(app)
}

// Error implementa error para poder devolver AppError desde helpers.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Title, e.Description, e.Cause)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Description)
}

func (e *AppError) Unwrap() error { return e.Cause }
