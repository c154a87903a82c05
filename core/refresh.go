package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RefreshResult describes how a valid access token was obtained.
type RefreshResult struct {
	Credential IntegrationCredential
	State      CredentialTokenState
	Refreshed  bool
}

// AccessToken returns a currently valid access token for the user's
// integration, refreshing the stored credential first when it is stale.
func (s *Service) AccessToken(ctx context.Context, userID string, integrationType string) (string, error) {
	result, err := s.EnsureCredentialFresh(ctx, NewIntegrationKey(userID, integrationType))
	if err != nil {
		return "", err
	}
	return result.Credential.AccessToken, nil
}

// EnsureCredentialFresh loads the credential for key and refreshes it when
// it expires within the configured skew. Concurrent callers for the same key
// share one refresh exchange. The stored credential is never mutated when the
// exchange fails.
func (s *Service) EnsureCredentialFresh(ctx context.Context, key IntegrationKey) (RefreshResult, error) {
	if err := key.Validate(); err != nil {
		return RefreshResult{}, MapError(err)
	}
	if s.credentialStore == nil {
		return RefreshResult{}, ConfigurationError("core: credential store is not configured")
	}

	credential, err := s.loadCredential(ctx, key)
	if err != nil {
		return RefreshResult{}, err
	}
	state := ResolveCredentialTokenState(s.now(), credential, s.config.Refresh.Skew)
	if state.IsFresh() {
		return RefreshResult{Credential: credential, State: state}, nil
	}

	// The shared exchange outlives any single caller: one caller going away
	// must not fail the others waiting on the same key.
	ch := s.refreshGroup.DoChan(key.String(), func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Refresh.Timeout)
		defer cancel()
		return s.refreshCredential(refreshCtx, key)
	})
	select {
	case <-ctx.Done():
		return RefreshResult{}, MapError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return RefreshResult{}, res.Err
		}
		return res.Val.(RefreshResult), nil
	}
}

func (s *Service) refreshCredential(ctx context.Context, key IntegrationKey) (result RefreshResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"integration_type": key.IntegrationType,
		"user_id":          key.UserID,
	}
	defer func() {
		if err == nil && !result.Refreshed {
			s.logDebug(ctx, "credential.refresh.skipped", fields)
			return
		}
		s.observeOperation(ctx, startedAt, "credential.refresh", err, fields)
	}()

	// Reread inside the critical section: another caller may have rotated
	// the tokens since the fast path check.
	credential, err := s.loadCredential(ctx, key)
	if err != nil {
		return RefreshResult{}, err
	}
	state := ResolveCredentialTokenState(s.now(), credential, s.config.Refresh.Skew)
	if state.IsFresh() {
		return RefreshResult{Credential: credential, State: state}, nil
	}
	if !ShouldRefreshCredential(state) {
		// Without a refresh token the skew cannot be acted on; a token that
		// has not expired yet is still usable.
		if state.HasAccessToken && !state.IsExpired {
			return RefreshResult{Credential: credential, State: state}, nil
		}
		return RefreshResult{}, RefreshFailedError("access token expired and no refresh token is stored", nil)
	}
	if s.provider == nil {
		return RefreshResult{}, ConfigurationError("core: provider is not configured")
	}

	grant, err := s.provider.Refresh(ctx, credential.RefreshToken)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	if err != nil {
		if timedOut || IsTimeout(err) {
			return RefreshResult{}, RemoteTimeoutError("token refresh", err)
		}
		return RefreshResult{}, RefreshFailedError("token refresh failed", err)
	}
	if strings.TrimSpace(grant.AccessToken) == "" {
		return RefreshResult{}, RefreshFailedError("token refresh response is missing access_token", nil)
	}
	if strings.TrimSpace(grant.RefreshToken) == "" {
		grant.RefreshToken = credential.RefreshToken
	}

	updated, err := s.credentialStore.UpdateTokens(ctx, key, credential.RefreshToken, grant)
	if err != nil {
		if !errors.Is(err, ErrCredentialConflict) {
			return RefreshResult{}, StorageError("persist refreshed credential", err)
		}
		current, loadErr := s.loadCredential(ctx, key)
		if loadErr != nil {
			return RefreshResult{}, loadErr
		}
		currentState := ResolveCredentialTokenState(s.now(), current, s.config.Refresh.Skew)
		if currentState.IsFresh() {
			fields["conflict_resolved"] = true
			return RefreshResult{Credential: current, State: currentState}, nil
		}
		return RefreshResult{}, RefreshConflictError(key)
	}

	if updated.TokenExpiresAt != nil {
		fields["token_expires_at"] = updated.TokenExpiresAt.Format(time.RFC3339)
	}
	return RefreshResult{
		Credential: updated,
		State:      ResolveCredentialTokenState(s.now(), updated, s.config.Refresh.Skew),
		Refreshed:  true,
	}, nil
}

func (s *Service) loadCredential(ctx context.Context, key IntegrationKey) (IntegrationCredential, error) {
	credential, err := s.credentialStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return IntegrationCredential{}, IntegrationNotConnectedError(key)
		}
		return IntegrationCredential{}, StorageError("load credential", err)
	}
	return credential, nil
}
