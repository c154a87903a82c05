package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorConfiguration           = "CONFIGURATION_ERROR"
	ErrorAuthentication          = "AUTHENTICATION_ERROR"
	ErrorIntegrationNotConnected = "INTEGRATION_NOT_CONNECTED"
	ErrorProviderExchangeFailed  = "PROVIDER_EXCHANGE_FAILED"
	ErrorProviderProtocol        = "PROVIDER_PROTOCOL_ERROR"
	ErrorRemoteFetchFailed       = "REMOTE_FETCH_FAILED"
	ErrorRemoteTimeout           = "REMOTE_TIMEOUT"
	ErrorRefreshFailed           = "REFRESH_FAILED"
	ErrorRefreshConflict         = "REFRESH_CONFLICT"
	ErrorStorage                 = "STORAGE_ERROR"
	ErrorBadInput                = "BAD_INPUT"
	ErrorInternal                = "INTERNAL_ERROR"
)

var ErrIntegrationNotConnected = errors.New("core: integration not connected")

func ConfigurationError(message string) *goerrors.Error {
	return newError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorConfiguration)
}

func AuthenticationError(message string, cause error) *goerrors.Error {
	return wrapError(cause, message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorAuthentication)
}

func IntegrationNotConnectedError(key IntegrationKey) *goerrors.Error {
	message := fmt.Sprintf("%s integration is not connected", key.IntegrationType)
	return wrapError(ErrIntegrationNotConnected, message, goerrors.CategoryNotFound, http.StatusNotFound, ErrorIntegrationNotConnected)
}

func ProviderExchangeFailedError(message string, cause error) *goerrors.Error {
	return wrapError(cause, message, goerrors.CategoryExternal, http.StatusBadGateway, ErrorProviderExchangeFailed)
}

func ProviderProtocolError(message string, cause error) *goerrors.Error {
	return wrapError(cause, message, goerrors.CategoryExternal, http.StatusBadGateway, ErrorProviderProtocol)
}

func RemoteFetchFailedError(status int, excerpt string) *goerrors.Error {
	message := fmt.Sprintf("remote fetch failed with status %d", status)
	if trimmed := strings.TrimSpace(excerpt); trimmed != "" {
		message += ": " + trimmed
	}
	return newError(message, goerrors.CategoryExternal, http.StatusBadGateway, ErrorRemoteFetchFailed).
		WithMetadata(map[string]any{"remote_status": status})
}

func RemoteRequestFailedError(operation string, cause error) *goerrors.Error {
	return wrapError(cause, operation+" request failed", goerrors.CategoryExternal, http.StatusBadGateway, ErrorRemoteFetchFailed)
}

func RemoteTimeoutError(operation string, cause error) *goerrors.Error {
	return wrapError(cause, operation+" timed out", goerrors.CategoryExternal, http.StatusGatewayTimeout, ErrorRemoteTimeout)
}

func RefreshFailedError(message string, cause error) *goerrors.Error {
	return wrapError(cause, message, goerrors.CategoryExternal, http.StatusBadGateway, ErrorRefreshFailed)
}

func RefreshConflictError(key IntegrationKey) *goerrors.Error {
	message := fmt.Sprintf("credential for %s was refreshed concurrently, retry the request", key.IntegrationType)
	return wrapError(ErrCredentialConflict, message, goerrors.CategoryConflict, http.StatusConflict, ErrorRefreshConflict)
}

func StorageError(operation string, cause error) *goerrors.Error {
	return wrapError(cause, operation, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorStorage)
}

func BadInputError(message string) *goerrors.Error {
	return newError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput)
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// HasErrorCode reports whether err carries the given text code.
func HasErrorCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), code)
}

// MapError normalizes any error into the connector error envelope. Errors
// already carrying a text code pass through unchanged.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case IsTimeout(err):
		return RemoteTimeoutError("remote call", err)
	case errors.Is(err, context.Canceled):
		return wrapError(err, "request canceled", goerrors.CategoryOperation, 499, ErrorInternal)
	case errors.Is(err, ErrInvalidIntegrationKey):
		return wrapError(err, err.Error(), goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput)
	case errors.Is(err, ErrIntegrationNotConnected), errors.Is(err, ErrCredentialNotFound):
		return wrapError(err, err.Error(), goerrors.CategoryNotFound, http.StatusNotFound, ErrorIntegrationNotConnected)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newError(message string, category goerrors.Category, status int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(textCode)
}

func wrapError(cause error, message string, category goerrors.Category, status int, textCode string) *goerrors.Error {
	if cause == nil {
		return newError(message, category, status, textCode)
	}
	causeMessage := strings.TrimSpace(cause.Error())
	if causeMessage != "" && !strings.Contains(message, causeMessage) {
		message = message + ": " + causeMessage
	}
	return goerrors.Wrap(cause, category, message).
		WithCode(status).
		WithTextCode(textCode)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorAuthentication
	case goerrors.CategoryNotFound:
		return ErrorIntegrationNotConnected
	case goerrors.CategoryConflict:
		return ErrorRefreshConflict
	case goerrors.CategoryExternal:
		return ErrorRemoteFetchFailed
	default:
		return ErrorInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
