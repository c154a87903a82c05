package command

import (
	"strings"

	"github.com/goliatone/go-crm-connector/core"
)

const (
	TypeBeginAuthorization    = "crm.command.authorization.begin"
	TypeCompleteAuthorization = "crm.command.authorization.complete"
	TypeRefreshCredential     = "crm.command.credential.refresh"
	TypeSyncCompanies         = "crm.command.companies.sync"
)

type BeginAuthorizationMessage struct {
	BearerToken string
}

func (BeginAuthorizationMessage) Type() string { return TypeBeginAuthorization }

func (m BeginAuthorizationMessage) Validate() error {
	if strings.TrimSpace(m.BearerToken) == "" {
		return commandValidationError("bearer_token", "bearer token is required")
	}
	return nil
}

// CompleteAuthorizationMessage carries the raw callback query. It is never
// rejected up front: malformed callbacks still produce an outcome.
type CompleteAuthorizationMessage struct {
	Request core.CallbackRequest
}

func (CompleteAuthorizationMessage) Type() string { return TypeCompleteAuthorization }

type RefreshCredentialMessage struct {
	UserID          string
	IntegrationType string
}

func (RefreshCredentialMessage) Type() string { return TypeRefreshCredential }

func (m RefreshCredentialMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

// SyncCompaniesMessage syncs either the caller behind BearerToken or, for
// operator jobs, an explicit UserID. Exactly one must be set.
type SyncCompaniesMessage struct {
	BearerToken string
	UserID      string
}

func (SyncCompaniesMessage) Type() string { return TypeSyncCompanies }

func (m SyncCompaniesMessage) Validate() error {
	hasBearer := strings.TrimSpace(m.BearerToken) != ""
	hasUser := strings.TrimSpace(m.UserID) != ""
	switch {
	case !hasBearer && !hasUser:
		return commandValidationError("bearer_token", "bearer token or user id is required")
	case hasBearer && hasUser:
		return commandValidationError("user_id", "bearer token and user id are mutually exclusive")
	}
	return nil
}
