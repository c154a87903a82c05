package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/goliatone/go-crm-connector/core"
)

const (
	defaultTokenRequestTimeout = 30 * time.Second
	maxErrorExcerptBytes       = 512
)

type OAuth2Config struct {
	AuthURL             string
	TokenURL            string
	ClientID            string
	ClientSecret        string
	RedirectURI         string
	Scopes              []string
	AuthParams          map[string]string
	TokenRequestTimeout time.Duration
	HTTPClient          *http.Client
}

// OAuth2Provider performs the consent URL, code exchange, and refresh steps
// of the authorization-code grant. Client credentials are sent in the form
// body.
type OAuth2Provider struct {
	cfg        OAuth2Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

func NewOAuth2Provider(cfg OAuth2Config) (*OAuth2Provider, error) {
	cfg.AuthURL = strings.TrimSpace(cfg.AuthURL)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)

	missing := make([]string, 0, 4)
	if cfg.AuthURL == "" {
		missing = append(missing, "auth url")
	}
	if cfg.TokenURL == "" {
		missing = append(missing, "token url")
	}
	if cfg.ClientID == "" {
		missing = append(missing, "client id")
	}
	if cfg.RedirectURI == "" {
		missing = append(missing, "redirect uri")
	}
	if len(missing) > 0 {
		return nil, core.ConfigurationError("providers: " + strings.Join(missing, ", ") + " required")
	}
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TokenRequestTimeout}
	}

	return &OAuth2Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       normalizeScopes(cfg.Scopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}, nil
}

func (p *OAuth2Provider) AuthCodeURL(state string) (string, error) {
	if p == nil || p.oauth == nil {
		return "", core.ConfigurationError("providers: oauth2 provider is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return "", core.BadInputError("providers: state is required")
	}
	options := make([]oauth2.AuthCodeOption, 0, len(p.cfg.AuthParams))
	for key, value := range p.cfg.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}
	return p.oauth.AuthCodeURL(state, options...), nil
}

func (p *OAuth2Provider) Exchange(ctx context.Context, code string) (core.TokenGrant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenGrant{}, core.BadInputError("providers: authorization code is required")
	}
	token, err := p.oauth.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return core.TokenGrant{}, tokenEndpointError("token exchange", err)
	}
	return grantFromToken(token), nil
}

func (p *OAuth2Provider) Refresh(ctx context.Context, refreshToken string) (core.TokenGrant, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, core.RefreshFailedError("providers: refresh token is required", nil)
	}
	source := p.oauth.TokenSource(p.clientContext(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	token, err := source.Token()
	if err != nil {
		return core.TokenGrant{}, tokenEndpointError("token refresh", err)
	}
	return grantFromToken(token), nil
}

func (p *OAuth2Provider) clientContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func grantFromToken(token *oauth2.Token) core.TokenGrant {
	grant := core.TokenGrant{
		AccessToken:  strings.TrimSpace(token.AccessToken),
		RefreshToken: strings.TrimSpace(token.RefreshToken),
		TokenType:    normalizeTokenType(token.TokenType),
	}
	if !token.Expiry.IsZero() {
		expiresAt := token.Expiry.UTC()
		grant.ExpiresAt = &expiresAt
	}
	if scope, ok := token.Extra("scope").(string); ok {
		grant.Scopes = parseScopeList(scope)
	}
	return grant
}

// tokenEndpointError keeps the provider's own error description so it can be
// surfaced to the caller unmasked.
func tokenEndpointError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.RemoteTimeoutError(operation, err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		message := strings.TrimSpace(retrieveErr.ErrorDescription)
		if message == "" {
			message = strings.TrimSpace(retrieveErr.ErrorCode)
		}
		if message == "" {
			message = excerpt(retrieveErr.Body)
		}
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return core.ProviderExchangeFailedError(
			fmt.Sprintf("%s rejected (status %d): %s", operation, status, message),
			err,
		)
	}
	return core.ProviderExchangeFailedError(operation+" failed", err)
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func parseScopeList(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return []string{}
	}
	return strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
}

func normalizeScopes(input []string) []string {
	values := make([]string, 0, len(input))
	seen := map[string]struct{}{}
	for _, value := range input {
		normalized := strings.TrimSpace(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		values = append(values, normalized)
	}
	return values
}

func excerpt(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > maxErrorExcerptBytes {
		trimmed = trimmed[:maxErrorExcerptBytes] + "..."
	}
	return trimmed
}
