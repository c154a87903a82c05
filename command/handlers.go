package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-crm-connector/core"
)

// ConnectorService is the subset of core.Service the commands drive.
type ConnectorService interface {
	IntegrationType() string
	BeginAuthorization(ctx context.Context, bearer string) (core.AuthorizationURL, error)
	CompleteAuthorization(ctx context.Context, req core.CallbackRequest) core.CallbackOutcome
	EnsureCredentialFresh(ctx context.Context, key core.IntegrationKey) (core.RefreshResult, error)
	SyncCompanies(ctx context.Context, bearer string) (core.SyncSummary, error)
	SyncCompaniesForUser(ctx context.Context, userID string) (core.SyncSummary, error)
}

type BeginAuthorizationCommand struct {
	service ConnectorService
}

func NewBeginAuthorizationCommand(service ConnectorService) *BeginAuthorizationCommand {
	return &BeginAuthorizationCommand{service: service}
}

func (c *BeginAuthorizationCommand) Execute(ctx context.Context, msg BeginAuthorizationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorization service is required")
	}
	out, err := c.service.BeginAuthorization(ctx, msg.BearerToken)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

// CompleteAuthorizationCommand stores the callback outcome and only returns
// an error for missing dependencies. Failures travel inside the outcome.
type CompleteAuthorizationCommand struct {
	service ConnectorService
}

func NewCompleteAuthorizationCommand(service ConnectorService) *CompleteAuthorizationCommand {
	return &CompleteAuthorizationCommand{service: service}
}

func (c *CompleteAuthorizationCommand) Execute(ctx context.Context, msg CompleteAuthorizationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorization service is required")
	}
	storeResult(ctx, c.service.CompleteAuthorization(ctx, msg.Request))
	return nil
}

type RefreshCredentialCommand struct {
	service ConnectorService
}

func NewRefreshCredentialCommand(service ConnectorService) *RefreshCredentialCommand {
	return &RefreshCredentialCommand{service: service}
}

func (c *RefreshCredentialCommand) Execute(ctx context.Context, msg RefreshCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	integrationType := strings.TrimSpace(msg.IntegrationType)
	if integrationType == "" {
		integrationType = c.service.IntegrationType()
	}
	out, err := c.service.EnsureCredentialFresh(ctx, core.NewIntegrationKey(msg.UserID, integrationType))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SyncCompaniesCommand struct {
	service ConnectorService
}

func NewSyncCompaniesCommand(service ConnectorService) *SyncCompaniesCommand {
	return &SyncCompaniesCommand{service: service}
}

func (c *SyncCompaniesCommand) Execute(ctx context.Context, msg SyncCompaniesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	var (
		out core.SyncSummary
		err error
	)
	if strings.TrimSpace(msg.UserID) != "" {
		out, err = c.service.SyncCompaniesForUser(ctx, msg.UserID)
	} else {
		out, err = c.service.SyncCompanies(ctx, msg.BearerToken)
	}
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
