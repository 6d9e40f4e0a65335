package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/oauth"
)

func setup(t *testing.T, userInfoStatus int) *Provider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		require.Equal(t, "cid", r.Form.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.test",
			"token_type":   "Bearer",
			"expires_in":   3599,
			"scope":        "openid https://www.googleapis.com/auth/userinfo.email",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if userInfoStatus != http.StatusOK {
			w.WriteHeader(userInfoStatus)
			return
		}
		_, _ = w.Write([]byte(`{"sub":"1101","email":"ana@gmail.com","name":"Ana","picture":"https://p/1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(Config{
		ClientID:     "cid",
		ClientSecret: "cs",
		RedirectURL:  "http://localhost/cb",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
		HTTPClient:   srv.Client(),
	})
}

func TestExchange_UserInfo(t *testing.T) {
	p := setup(t, http.StatusOK)
	raw, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)

	c, err := claims.Normalize(claims.Google, raw)
	require.NoError(t, err)
	require.Equal(t, "google-oauth2:1101", c.Subject)
	require.Equal(t, "https://p/1", c.Picture)
	require.Equal(t, []string{"openid", "https://www.googleapis.com/auth/userinfo.email"}, c.RawScope)
}

func TestName_MatchesClaimsTable(t *testing.T) {
	p := setup(t, http.StatusOK)
	require.Equal(t, "google-oauth2", p.Name())
	require.Equal(t, claims.Google, p.Name())
}

func TestExchange_UserInfoFailure(t *testing.T) {
	p := setup(t, http.StatusUnauthorized)
	_, err := p.Exchange(context.Background(), "code")
	require.ErrorIs(t, err, oauth.ErrExchange)
}

func TestAuthorizationURL_DefaultScopes(t *testing.T) {
	p := New(Config{ClientID: "cid", RedirectURL: "http://cb"})
	u, err := url.Parse(p.AuthorizationURL("s"))
	require.NoError(t, err)
	require.Equal(t, "openid profile email", u.Query().Get("scope"))
	require.Equal(t, "code", u.Query().Get("response_type"))
	require.Equal(t, "s", u.Query().Get("state"))
}
