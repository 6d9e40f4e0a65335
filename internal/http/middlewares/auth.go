package middlewares

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/jwt"
	"github.com/dropDatabas3/refgate/internal/metrics"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// =================================================================================
// AUTHENTICATION MIDDLEWARE
// =================================================================================

// TokenDecoder verifica un token de sesión y devuelve su payload.
type TokenDecoder interface {
	Decode(token string) (map[string]any, error)
}

// Provisioner asegura que exista el usuario local de una identidad externa.
type Provisioner interface {
	Ensure(ctx context.Context, c claims.IdentityClaims) (*repository.User, bool, error)
}

// AuthConfig configura WithAuthentication.
type AuthConfig struct {
	Decoder     TokenDecoder
	CookieName  string      // default "Authorization"
	Provisioner Provisioner // opcional; se invoca en cada request autenticado con identity
}

// WithAuthentication resuelve el AuthContext de cada request:
//   - sin credencial (header ni cookie) el request sigue como anónimo
//   - esquema distinto de Bearer: 403
//   - token vencido, firma inválida o mal formado: 401
//   - token válido: AuthContext autenticado y, si hay identity, provisioning
//
// El header Authorization tiene prioridad sobre la cookie.
func WithAuthentication(cfg AuthConfig) Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = "Authorization"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := authenticate(r, cfg)
			if err != nil {
				logger.From(r.Context()).Debug("authentication rejected",
					logger.Component("middleware.auth"),
					logger.Err(err),
				)
				errors.WriteError(w, err)
				return
			}

			ctx := WithAuth(r.Context(), ac)
			if ac.Authenticated && ac.UserID != "" {
				ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(ac.UserID)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg AuthConfig) (AuthContext, error) {
	raw := credential(r, cfg.CookieName)
	scheme, param := splitAuthorization(raw)
	if scheme == "" || param == "" {
		return AuthContext{}, nil
	}
	if !strings.EqualFold(scheme, "bearer") {
		metrics.TokenDecodeFailure("scheme")
		return AuthContext{}, types.InvalidScheme()
	}

	payload, err := cfg.Decoder.Decode(param)
	if err != nil {
		return AuthContext{}, decodeError(err)
	}

	ic, err := claims.FromSession(payload)
	if err != nil {
		metrics.TokenDecodeFailure("malformed")
		return AuthContext{}, types.InvalidCredential("Could not validate credentials", err)
	}

	ac := AuthContext{
		Authenticated: true,
		Claims:        ic,
		Scopes:        ic.RawScope,
		ExpiresAt:     jwt.ExpiresAt(payload),
	}
	if id, ok := payload["id"].(string); ok {
		ac.UserID = id
	}

	if cfg.Provisioner != nil && ic.Subject != "" {
		u, _, err := cfg.Provisioner.Ensure(r.Context(), ic)
		if err != nil {
			if types.IsInfrastructure(err) {
				return AuthContext{}, err
			}
			return AuthContext{}, types.InvalidCredential("Could not validate credentials", err)
		}
		if u != nil {
			ac.UserID = u.ID
		}
	}
	return ac, nil
}

// credential devuelve el valor crudo "Bearer <token>" del header o de la cookie.
func credential(r *http.Request, cookieName string) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		return h
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// splitAuthorization separa "<scheme> <param>".
func splitAuthorization(v string) (scheme, param string) {
	scheme, param, _ = strings.Cut(strings.TrimSpace(v), " ")
	return scheme, strings.TrimSpace(param)
}

func decodeError(err error) error {
	switch {
	case stderrors.Is(err, jwt.ErrExpired):
		metrics.TokenDecodeFailure("expired")
		return types.InvalidCredential("Token expired", err)
	case stderrors.Is(err, jwt.ErrInvalidSignature):
		metrics.TokenDecodeFailure("signature")
	default:
		metrics.TokenDecodeFailure("malformed")
	}
	return types.InvalidCredential("Could not validate credentials", err)
}

// RequireUser corta con 401 los requests sin sesión válida.
// Debe usarse después de WithAuthentication.
func RequireUser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetAuth(r.Context()).Authenticated {
				w.Header().Set("WWW-Authenticate", "Bearer")
				errors.WriteError(w, errors.ErrTokenMissing.WithCause(types.ErrUnauthorizedAccess))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
