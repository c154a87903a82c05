package core

import (
	"context"
	"strings"
	"time"
)

// BeginAuthorization builds the provider consent URL for the caller
// identified by bearer. Nothing is stored: the state value is re-validated
// when the callback arrives.
func (s *Service) BeginAuthorization(ctx context.Context, bearer string) (result AuthorizationURL, err error) {
	startedAt := time.Now()
	fields := map[string]any{"integration_type": s.IntegrationType()}
	defer func() {
		s.observeOperation(ctx, startedAt, "auth.begin", err, fields)
	}()

	if strings.TrimSpace(s.config.OAuth.ClientID) == "" || strings.TrimSpace(s.config.OAuth.RedirectURI) == "" {
		return AuthorizationURL{}, ConfigurationError("core: oauth client_id and redirect_uri are required")
	}
	if s.provider == nil {
		return AuthorizationURL{}, ConfigurationError("core: provider is not configured")
	}

	userID, err := s.resolveCaller(ctx, bearer)
	if err != nil {
		return AuthorizationURL{}, err
	}
	fields["user_id"] = userID

	state, err := s.stateCodec.Encode(ctx, userID)
	if err != nil {
		return AuthorizationURL{}, MapError(err)
	}
	consentURL, err := s.provider.AuthCodeURL(state)
	if err != nil {
		return AuthorizationURL{}, MapError(err)
	}
	return AuthorizationURL{URL: consentURL, State: state}, nil
}
