// Package oauth defines the provider contract used by the OAuth2 login flow
// and an immutable registry of configured providers keyed by name.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Provider is one configured OAuth2 identity provider.
type Provider interface {
	// Name is the registry key and the {provider} route segment.
	Name() string
	// AuthorizationURL builds the provider consent URL carrying state.
	AuthorizationURL(state string) string
	// Exchange trades an authorization code for the provider's raw user claims.
	Exchange(ctx context.Context, code string) (map[string]any, error)
}

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrExchange        = errors.New("oauth: code exchange failed")
)

// ExchangeError wraps a provider-side or network failure during Exchange.
type ExchangeError struct {
	Provider string
	Err      error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("oauth: %s exchange: %v", e.Provider, e.Err)
}

func (e *ExchangeError) Is(target error) bool { return target == ErrExchange }
func (e *ExchangeError) Unwrap() error        { return e.Err }

// Registry is built once at startup and only read afterwards.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes providers by Name. Duplicate names are rejected.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := r.providers[p.Name()]; dup {
			return nil, fmt.Errorf("oauth: duplicate provider %q", p.Name())
		}
		r.providers[p.Name()] = p
	}
	return r, nil
}

// Get resolves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	if r != nil {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultHTTPClient is used by provider clients when none is configured.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
