// Package google implements the Google OAuth2 provider. Claims come from the
// OpenID Connect userinfo endpoint using the exchanged access token.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/oauth"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Config configures the client. The URL fields are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	HTTPClient  *http.Client
}

type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	http        *http.Client
}

var _ oauth.Provider = (*Provider)(nil)

// New creates a Google provider. Default scopes are openid, profile and email.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "profile", "email"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = oauth.DefaultHTTPClient()
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		http:        cfg.HTTPClient,
	}
}

func (p *Provider) Name() string { return claims.Google }

func (p *Provider) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades the code and returns the userinfo payload
// (sub, email, name, picture...) plus the granted scope.
func (p *Provider) Exchange(ctx context.Context, code string) (map[string]any, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &oauth.ExchangeError{Provider: p.Name(), Err: err}
	}

	raw, err := p.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, &oauth.ExchangeError{Provider: p.Name(), Err: err}
	}
	if s, ok := tok.Extra("scope").(string); ok {
		raw["scope"] = s
	} else {
		raw["scope"] = strings.Join(p.oauth.Scopes, " ")
	}
	return raw, nil
}

func (p *Provider) fetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info failed with status %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty user info payload")
	}
	return raw, nil
}
