package core

import (
	"testing"
	"time"
)

func TestResolveCredentialTokenState(t *testing.T) {
	now := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	skew := time.Minute

	cases := []struct {
		name       string
		credential IntegrationCredential
		fresh      bool
		refresh    bool
	}{
		{
			name:       "missing_expiry_never_expires",
			credential: IntegrationCredential{AccessToken: "access", RefreshToken: "refresh"},
			fresh:      true,
		},
		{
			name:       "expired",
			credential: IntegrationCredential{AccessToken: "access", RefreshToken: "refresh", TokenExpiresAt: ptrTime(now.Add(-time.Minute))},
			refresh:    true,
		},
		{
			name:       "expires_exactly_now",
			credential: IntegrationCredential{AccessToken: "access", RefreshToken: "refresh", TokenExpiresAt: ptrTime(now)},
			refresh:    true,
		},
		{
			name:       "within_skew",
			credential: IntegrationCredential{AccessToken: "access", RefreshToken: "refresh", TokenExpiresAt: ptrTime(now.Add(30 * time.Second))},
			refresh:    true,
		},
		{
			name:       "beyond_skew",
			credential: IntegrationCredential{AccessToken: "access", RefreshToken: "refresh", TokenExpiresAt: ptrTime(now.Add(2 * time.Hour))},
			fresh:      true,
		},
		{
			name:       "expired_without_refresh_token",
			credential: IntegrationCredential{AccessToken: "access", TokenExpiresAt: ptrTime(now.Add(-time.Hour))},
		},
		{
			name:       "missing_access_token",
			credential: IntegrationCredential{RefreshToken: "refresh"},
			refresh:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := ResolveCredentialTokenState(now, tc.credential, skew)
			if state.IsFresh() != tc.fresh {
				t.Fatalf("expected fresh=%v, got %v", tc.fresh, state.IsFresh())
			}
			if ShouldRefreshCredential(state) != tc.refresh {
				t.Fatalf("expected refresh=%v, got %v", tc.refresh, ShouldRefreshCredential(state))
			}
		})
	}
}

func TestExpiresAtFromLifetime(t *testing.T) {
	now := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	expiresAt := ExpiresAtFromLifetime(now, 1800)
	if expiresAt == nil || !expiresAt.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("expected expiry 30m after now, got %v", expiresAt)
	}
	if ExpiresAtFromLifetime(now, 0) != nil {
		t.Fatalf("expected nil expiry for unknown lifetime")
	}
}
