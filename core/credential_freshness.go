package core

import (
	"strings"
	"time"
)

// CredentialTokenState captures access/refresh lifecycle state derived from a stored credential.
type CredentialTokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// ResolveCredentialTokenState evaluates expiry flags for a credential. A nil
// expiry is treated as a token that never expires.
func ResolveCredentialTokenState(now time.Time, credential IntegrationCredential, skew time.Duration) CredentialTokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if skew < 0 {
		skew = 0
	}

	state := CredentialTokenState{
		HasAccessToken:  strings.TrimSpace(credential.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(credential.RefreshToken) != "",
	}
	if credential.TokenExpiresAt == nil {
		return state
	}
	expiresAt := credential.TokenExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		state.IsExpiringSoon = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(skew))
	return state
}

// IsFresh reports whether the stored access token can be used without a
// refresh exchange.
func (s CredentialTokenState) IsFresh() bool {
	return s.HasAccessToken && !s.IsExpired && !s.IsExpiringSoon
}

// ShouldRefreshCredential returns true when a refresh exchange is needed and
// possible.
func ShouldRefreshCredential(state CredentialTokenState) bool {
	return !state.IsFresh() && state.HasRefreshToken
}

// ExpiresAtFromLifetime converts a provider reported lifetime in seconds into
// an absolute expiry. Non-positive lifetimes mean unknown.
func ExpiresAtFromLifetime(now time.Time, lifetimeSeconds int64) *time.Time {
	if lifetimeSeconds <= 0 {
		return nil
	}
	if now.IsZero() {
		now = time.Now()
	}
	expiresAt := now.UTC().Add(time.Duration(lifetimeSeconds) * time.Second)
	return &expiresAt
}
