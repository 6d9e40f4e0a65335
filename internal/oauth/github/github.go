// Package github implements the GitHub OAuth2 provider.
// GitHub issues no ID token, so claims come from the REST API
// (/user, plus /user/emails when the profile email is private).
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/oauth"
)

const (
	defaultAuthURL  = "https://github.com/login/oauth/authorize"
	defaultTokenURL = "https://github.com/login/oauth/access_token"
	defaultAPIBase  = "https://api.github.com"
)

// Config configures the client. The URL fields are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	APIBase    string
	HTTPClient *http.Client
}

// Provider is the GitHub OAuth2 client.
type Provider struct {
	oauth   *oauth2.Config
	apiBase string
	http    *http.Client
}

var _ oauth.Provider = (*Provider)(nil)

// New creates a GitHub provider. Default scope is user:email.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"user:email"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
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
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		http:    cfg.HTTPClient,
	}
}

func (p *Provider) Name() string { return claims.GitHub }

func (p *Provider) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("allow_signup", "true"))
}

// Exchange trades the code and returns the /user payload, with email filled
// from /user/emails if needed and the granted scope under "scope".
func (p *Provider) Exchange(ctx context.Context, code string) (map[string]any, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &oauth.ExchangeError{Provider: p.Name(), Err: err}
	}

	raw, err := p.userInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, &oauth.ExchangeError{Provider: p.Name(), Err: err}
	}
	if e, _ := raw["email"].(string); e == "" {
		email, err := p.primaryEmail(ctx, tok.AccessToken)
		if err != nil {
			return nil, &oauth.ExchangeError{Provider: p.Name(), Err: fmt.Errorf("failed to get email: %w", err)}
		}
		raw["email"] = email
	}
	if s, ok := tok.Extra("scope").(string); ok {
		raw["scope"] = s
	}
	return raw, nil
}

func (p *Provider) get(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api error: %s status %d", path, resp.StatusCode)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (p *Provider) userInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	var raw map[string]any
	if err := p.get(ctx, "/user", accessToken, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("github api error: empty /user payload")
	}
	return raw, nil
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// primaryEmail prefers primary+verified, then any verified address.
func (p *Provider) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []emailInfo
	if err := p.get(ctx, "/user/emails", accessToken, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", fmt.Errorf("no verified email found")
}
