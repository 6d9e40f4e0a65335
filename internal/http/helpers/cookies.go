package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig es la política de la cookie de sesión. Inmutable tras el arranque.
type CookieConfig struct {
	Name     string // default "Authorization"
	SameSite http.SameSite
	HTTPOnly bool
	Secure   bool
	TTL      time.Duration
}

func ParseSameSite(s string) http.SameSite {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return "Authorization"
	}
	return c.Name
}

// SessionCookie arma la cookie "Authorization=Bearer <token>" que vence en exp.
func (c CookieConfig) SessionCookie(token string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     c.name(),
		Value:    "Bearer " + token,
		Path:     "/",
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
	if !exp.IsZero() {
		ck.Expires = exp.UTC()
		ck.MaxAge = int(time.Until(exp).Seconds())
	} else if c.TTL > 0 {
		ck.Expires = time.Now().Add(c.TTL).UTC()
		ck.MaxAge = int(c.TTL.Seconds())
	}
	return ck
}

// ClearSessionCookie borra la cookie de sesión.
func (c CookieConfig) ClearSessionCookie() *http.Cookie {
	return BuildDeletionCookie(c.name(), "/", c.SameSite, c.Secure)
}

// SessionCookieName es el nombre efectivo de la cookie de sesión.
func (c CookieConfig) SessionCookieName() string { return c.name() }

// BuildCookie arma una cookie HttpOnly de vida corta (ej. state de OAuth).
func BuildCookie(name, value, path string, sameSite http.SameSite, secure bool, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func BuildDeletionCookie(name, path string, sameSite http.SameSite, secure bool) *http.Cookie {
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
}
