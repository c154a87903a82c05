package core

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// CompleteAuthorization runs one callback attempt through
// received, validated, exchanged, account_fetched, and persisted. Any failure
// stops the attempt and is reported in the outcome; tokens never appear in
// it. The returned outcome always carries the frontend redirect URL.
func (s *Service) CompleteAuthorization(ctx context.Context, req CallbackRequest) (outcome CallbackOutcome) {
	startedAt := time.Now()
	fields := map[string]any{"integration_type": s.IntegrationType()}
	outcome.Stage = CallbackStageReceived
	defer func() {
		fields["stage"] = string(outcome.Stage)
		if outcome.UserID != "" {
			fields["user_id"] = outcome.UserID
		}
		s.observeOperation(ctx, startedAt, "auth.callback", outcome.Err, fields)
	}()

	fail := func(err error) CallbackOutcome {
		mapped := MapError(err)
		outcome.Status = CallbackStatusError
		outcome.Err = mapped
		outcome.Message = mapped.Message
		outcome.RedirectURL = s.frontendRedirect(CallbackStatusError, mapped.Message)
		return outcome
	}

	if providerError := strings.TrimSpace(req.Error); providerError != "" {
		message := strings.TrimSpace(req.ErrorDescription)
		if message == "" {
			message = providerError
		}
		return fail(AuthenticationError("authorization was not granted: "+message, nil))
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.State) == "" {
		return fail(BadInputError("authorization callback is missing code or state"))
	}
	if s.provider == nil || s.credentialStore == nil {
		return fail(ConfigurationError("core: provider and credential store are required"))
	}

	userID, err := s.stateCodec.Decode(ctx, req.State)
	if err != nil {
		return fail(AuthenticationError("invalid authorization state", nil))
	}
	outcome.UserID = userID
	outcome.Stage = CallbackStageValidated

	exchangeCtx, cancel := context.WithTimeout(ctx, s.config.OAuth.ExchangeTimeout)
	grant, err := s.provider.Exchange(exchangeCtx, strings.TrimSpace(req.Code))
	timedOut := errors.Is(exchangeCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		return fail(classifyRemoteError("token exchange", err, timedOut, func(cause error) error {
			return ProviderExchangeFailedError("token exchange failed", cause)
		}))
	}
	if strings.TrimSpace(grant.AccessToken) == "" {
		return fail(ProviderExchangeFailedError("token response is missing access_token", nil))
	}
	outcome.Stage = CallbackStageExchanged

	accountCtx, cancel := context.WithTimeout(ctx, s.config.API.RequestTimeout)
	account, err := s.provider.FetchAccount(accountCtx, grant.AccessToken)
	timedOut = errors.Is(accountCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		return fail(classifyRemoteError("account lookup", err, timedOut, func(cause error) error {
			return RemoteRequestFailedError("account lookup", cause)
		}))
	}
	if strings.TrimSpace(account.WorkspaceID) == "" {
		return fail(ProviderProtocolError("account metadata is missing the account id", nil))
	}
	outcome.Stage = CallbackStageAccountFetched

	now := s.now()
	credential := IntegrationCredential{
		UserID:             userID,
		IntegrationType:    s.IntegrationType(),
		AccessToken:        grant.AccessToken,
		RefreshToken:       grant.RefreshToken,
		TokenExpiresAt:     cloneTimePointer(grant.ExpiresAt),
		WorkspaceID:        strings.TrimSpace(account.WorkspaceID),
		AdditionalSettings: connectionSettings(grant, account, now),
	}
	if _, err := s.credentialStore.Upsert(ctx, credential); err != nil {
		return fail(StorageError("persist credential", err))
	}
	outcome.Stage = CallbackStagePersisted
	fields["workspace_id"] = credential.WorkspaceID

	outcome.Status = CallbackStatusSuccess
	outcome.RedirectURL = s.frontendRedirect(CallbackStatusSuccess, "")
	return outcome
}

// ErrorRedirectURL builds the frontend error redirect for failures that
// happen before CompleteAuthorization can run.
func (s *Service) ErrorRedirectURL(err error) string {
	mapped := MapError(err)
	message := ""
	if mapped != nil {
		message = mapped.Message
	}
	return s.frontendRedirect(CallbackStatusError, message)
}

func (s *Service) frontendRedirect(status CallbackStatus, message string) string {
	base := strings.TrimSpace(s.config.Frontend.RedirectURL)
	parsed, err := url.Parse(base)
	if err != nil {
		parsed = &url.URL{Path: "/"}
	}
	query := parsed.Query()
	query.Set("status", string(status))
	if status == CallbackStatusError {
		if message = strings.TrimSpace(message); message == "" {
			message = "Authorization failed"
		}
		query.Set("message", message)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func connectionSettings(grant TokenGrant, account AccountInfo, now time.Time) map[string]any {
	settings := map[string]any{
		"connected_at": now.UTC().Format(time.RFC3339),
	}
	if len(grant.Scopes) > 0 {
		settings["scopes"] = append([]string(nil), grant.Scopes...)
	}
	if tokenType := strings.TrimSpace(grant.TokenType); tokenType != "" {
		settings["token_type"] = tokenType
	}
	if name := strings.TrimSpace(account.DisplayName); name != "" {
		settings["account_name"] = name
	}
	if email := strings.TrimSpace(account.UserEmail); email != "" {
		settings["user"] = email
	}
	return settings
}

// classifyRemoteError keeps errors that already carry a connector code and
// turns expired deadlines into RemoteTimeout.
func classifyRemoteError(operation string, err error, timedOut bool, fallback func(error) error) error {
	if timedOut || IsTimeout(err) {
		return RemoteTimeoutError(operation, err)
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && strings.TrimSpace(richErr.TextCode) != "" {
		return richErr
	}
	return fallback(err)
}
