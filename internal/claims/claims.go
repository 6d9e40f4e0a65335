// Package claims normalizes provider-specific identity payloads into the
// canonical IdentityClaims used for session tokens and user lookup.
package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrClaims reports a raw payload missing a required field.
var ErrClaims = errors.New("claims: malformed provider claims")

// IdentityClaims is the canonical identity derived from a provider response
// or from a decoded session token.
type IdentityClaims struct {
	Subject  string // "<provider>:<externalId>"
	Provider string
	Email    string
	Name     string
	Picture  string
	RawScope []string
}

// MapFunc turns one provider's raw claims into IdentityClaims. Implementations
// must be pure.
type MapFunc func(raw map[string]any) (IdentityClaims, error)

// Provider identifiers with a registered mapping.
const (
	GitHub = "github"
	Google = "google-oauth2"
)

var mappers = map[string]MapFunc{
	GitHub: mapGitHub,
	Google: mapGoogle,
}

// Supported returns the provider names that have a mapping, sorted.
func Supported() []string {
	out := make([]string, 0, len(mappers))
	for k := range mappers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Normalize applies the mapping registered for provider.
func Normalize(provider string, raw map[string]any) (IdentityClaims, error) {
	fn, ok := mappers[provider]
	if !ok {
		return IdentityClaims{}, fmt.Errorf("%w: no mapping for provider %q", ErrClaims, provider)
	}
	return fn(raw)
}

func mapGitHub(raw map[string]any) (IdentityClaims, error) {
	id, ok := idString(raw["id"])
	if !ok {
		return IdentityClaims{}, missing(GitHub, "id")
	}
	email := str(raw, "email")
	if email == "" {
		return IdentityClaims{}, missing(GitHub, "email")
	}
	name := str(raw, "name")
	if name == "" {
		name = str(raw, "login")
	}
	return IdentityClaims{
		Subject:  GitHub + ":" + id,
		Provider: GitHub,
		Email:    email,
		Name:     name,
		Picture:  str(raw, "avatar_url"),
		RawScope: splitScope(raw["scope"]),
	}, nil
}

func mapGoogle(raw map[string]any) (IdentityClaims, error) {
	sub := str(raw, "sub")
	if sub == "" {
		return IdentityClaims{}, missing(Google, "sub")
	}
	email := str(raw, "email")
	if email == "" {
		return IdentityClaims{}, missing(Google, "email")
	}
	return IdentityClaims{
		Subject:  Google + ":" + sub,
		Provider: Google,
		Email:    email,
		Name:     str(raw, "name"),
		Picture:  str(raw, "picture"),
		RawScope: splitScope(raw["scope"]),
	}, nil
}

// FromSession rebuilds IdentityClaims from a decoded session token payload.
// Local accounts may carry an identity without a provider prefix.
func FromSession(payload map[string]any) (IdentityClaims, error) {
	email := str(payload, "email")
	if email == "" {
		return IdentityClaims{}, missing("session", "email")
	}
	c := IdentityClaims{
		Subject:  str(payload, "identity"),
		Provider: str(payload, "provider"),
		Email:    email,
		Name:     str(payload, "name"),
		Picture:  str(payload, "picture"),
		RawScope: splitScope(payload["scope"]),
	}
	if c.Provider == "" {
		if p, _, ok := strings.Cut(c.Subject, ":"); ok {
			c.Provider = p
		}
	}
	return c, nil
}

// SessionPayload renders the claims as a session token payload for userID.
func (c IdentityClaims) SessionPayload(userID string) map[string]any {
	p := map[string]any{
		"id":       userID,
		"identity": c.Subject,
		"email":    c.Email,
	}
	if c.Provider != "" {
		p["provider"] = c.Provider
	}
	if c.Name != "" {
		p["name"] = c.Name
	}
	if c.Picture != "" {
		p["picture"] = c.Picture
	}
	if len(c.RawScope) > 0 {
		p["scope"] = strings.Join(c.RawScope, " ")
	}
	return p
}

func missing(provider, field string) error {
	return fmt.Errorf("%w: %s payload has no %q", ErrClaims, provider, field)
}

func str(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return strings.TrimSpace(s)
}

func idString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}

// splitScope accepts space or comma separated strings and string lists.
func splitScope(v any) []string {
	var parts []string
	switch x := v.(type) {
	case string:
		parts = strings.FieldsFunc(x, func(r rune) bool { return r == ' ' || r == ',' })
	case []string:
		parts = x
	case []any:
		for _, it := range x {
			if s, ok := it.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}
