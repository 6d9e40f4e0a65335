package middlewares

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/refgate/internal/claims"
)

type ctxKey string

const (
	// ctxAuthKey guarda el AuthContext resuelto por WithAuthentication
	ctxAuthKey ctxKey = "auth"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// AuthContext describe quién hace el request. El valor cero es un request
// anónimo. Se arma una vez por request y no se modifica después.
type AuthContext struct {
	Authenticated bool
	UserID        string
	Claims        claims.IdentityClaims
	Scopes        []string
	ExpiresAt     time.Time
}

// HasScope indica si el token trae el scope pedido (case-insensitive).
func (a AuthContext) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

// Email es un atajo a Claims.Email.
func (a AuthContext) Email() string { return a.Claims.Email }

// WithAuth inyecta el AuthContext en el contexto.
func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, ctxAuthKey, ac)
}

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetAuth obtiene el AuthContext. Sin middleware de auth devuelve un contexto anónimo.
func GetAuth(ctx context.Context) AuthContext {
	if v, ok := ctx.Value(ctxAuthKey).(AuthContext); ok {
		return v
	}
	return AuthContext{}
}

// GetRequestID devuelve el request ID asignado por WithRequestID, o "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestIDKey).(string)
	return id
}
