package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// CredentialStore persists one IntegrationCredential per integration key.
type CredentialStore interface {
	Get(ctx context.Context, key IntegrationKey) (IntegrationCredential, error)
	Upsert(ctx context.Context, credential IntegrationCredential) (IntegrationCredential, error)
	// UpdateTokens overwrites the token triple only when the stored refresh
	// token still equals expectedRefreshToken. It returns ErrCredentialConflict
	// otherwise.
	UpdateTokens(ctx context.Context, key IntegrationKey, expectedRefreshToken string, grant TokenGrant) (IntegrationCredential, error)
}

type CompanyStore interface {
	UpsertBatch(ctx context.Context, companies []Company) (int, error)
}

// IdentityResolver maps a caller bearer token to the owning user id.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, bearerToken string) (string, error)
}

// Provider is the remote CRM: its OAuth endpoints plus the account and
// objects APIs used by the connector.
type Provider interface {
	IntegrationType() string
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)
	FetchAccount(ctx context.Context, accessToken string) (AccountInfo, error)
	ListCompanies(ctx context.Context, accessToken string, req PageRequest) (RemotePage, error)
}

// StateCodec binds an authorization attempt to the requesting user.
type StateCodec interface {
	Encode(ctx context.Context, userID string) (string, error)
	Decode(ctx context.Context, state string) (string, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}
