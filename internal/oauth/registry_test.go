package oauth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct{ name string }

func (f fakeProvider) Name() string                       { return f.name }
func (f fakeProvider) AuthorizationURL(state string) string { return "https://idp/" + f.name + "?state=" + state }
func (f fakeProvider) Exchange(context.Context, string) (map[string]any, error) {
	return nil, &ExchangeError{Provider: f.name, Err: errors.New("boom")}
}

func TestRegistry_GetAndNames(t *testing.T) {
	r, err := NewRegistry(fakeProvider{"google-oauth2"}, fakeProvider{"github"}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"github", "google-oauth2"}, r.Names())

	p, err := r.Get("github")
	require.NoError(t, err)
	require.Equal(t, "github", p.Name())

	_, err = r.Get("gitlab")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(fakeProvider{"github"}, fakeProvider{"github"})
	require.Error(t, err)
}

func TestExchangeError_Is(t *testing.T) {
	_, err := fakeProvider{"github"}.Exchange(context.Background(), "c")
	require.ErrorIs(t, err, ErrExchange)

	var xe *ExchangeError
	require.ErrorAs(t, err, &xe)
	require.Equal(t, "github", xe.Provider)
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	_, err := r.Get("github")
	require.ErrorIs(t, err, ErrUnknownProvider)
	require.Nil(t, r.Names())
}
