package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidIntegrationKey = errors.New("core: invalid integration key")
	ErrCredentialNotFound    = errors.New("core: credential not found")
	ErrCredentialConflict    = errors.New("core: credential changed concurrently")
	ErrCompanyNotFound       = errors.New("core: company not found")
)

// IntegrationKey identifies the single credential a user may hold for an
// integration type.
type IntegrationKey struct {
	UserID          string
	IntegrationType string
}

func NewIntegrationKey(userID string, integrationType string) IntegrationKey {
	return IntegrationKey{
		UserID:          strings.TrimSpace(userID),
		IntegrationType: strings.TrimSpace(strings.ToLower(integrationType)),
	}
}

func (k IntegrationKey) Validate() error {
	if strings.TrimSpace(k.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidIntegrationKey)
	}
	if strings.TrimSpace(k.IntegrationType) == "" {
		return fmt.Errorf("%w: integration type is required", ErrInvalidIntegrationKey)
	}
	return nil
}

func (k IntegrationKey) String() string {
	return k.IntegrationType + ":" + k.UserID
}

type IntegrationCredential struct {
	ID                 string
	UserID             string
	IntegrationType    string
	AccessToken        string
	RefreshToken       string
	TokenExpiresAt     *time.Time
	WorkspaceID        string
	AdditionalSettings map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c IntegrationCredential) Key() IntegrationKey {
	return NewIntegrationKey(c.UserID, c.IntegrationType)
}

// TokenGrant is the normalized result of an authorization-code or refresh
// exchange. ExpiresAt is nil when the provider did not report a lifetime.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scopes       []string
	ExpiresAt    *time.Time
}

type AccountInfo struct {
	WorkspaceID string
	DisplayName string
	UserEmail   string
	Raw         map[string]any
}

type PageRequest struct {
	Limit      int
	After      string
	Properties []string
}

type RemoteRecord struct {
	ID         string
	Properties map[string]any
	CreatedAt  string
	UpdatedAt  string
	Archived   bool
}

// RemotePage is one page of remote objects. NextCursor is empty when the
// remote reports no further pages.
type RemotePage struct {
	Records    []RemoteRecord
	NextCursor string
}

type Company struct {
	ID              string
	UserID          string
	RemoteID        string
	Name            *string
	Domain          *string
	Industry        *string
	Description     *string
	Phone           *string
	EmployeeCount   *int64
	AnnualRevenue   *float64
	City            *string
	Country         *string
	Location        *string
	RemoteCreatedAt *time.Time
	RemoteUpdatedAt *time.Time
	RawProperties   map[string]any
	SyncedAt        time.Time
}

type SyncSummary struct {
	IntegrationType string
	UserID          string
	Count           int
	Pages           int
	NextCursor      string
}

func (s SyncSummary) Message() string {
	if s.Count == 1 {
		return "Synced 1 company"
	}
	return fmt.Sprintf("Synced %d companies", s.Count)
}

type AuthorizationURL struct {
	URL   string
	State string
}

type CallbackStatus string

const (
	CallbackStatusSuccess CallbackStatus = "success"
	CallbackStatusError   CallbackStatus = "error"
)

// CallbackStage tracks how far an authorization callback progressed.
type CallbackStage string

const (
	CallbackStageReceived       CallbackStage = "received"
	CallbackStageValidated      CallbackStage = "validated"
	CallbackStageExchanged      CallbackStage = "exchanged"
	CallbackStageAccountFetched CallbackStage = "account_fetched"
	CallbackStagePersisted      CallbackStage = "persisted"
)

type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type CallbackOutcome struct {
	Status      CallbackStatus
	Stage       CallbackStage
	Message     string
	RedirectURL string
	UserID      string
	Err         error
}

func (o CallbackOutcome) Succeeded() bool {
	return o.Status == CallbackStatusSuccess
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneTimePointer(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	value := in.UTC()
	return &value
}
