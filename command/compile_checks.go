package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-crm-connector/core"
)

var (
	_ gocmd.Commander[BeginAuthorizationMessage]    = (*BeginAuthorizationCommand)(nil)
	_ gocmd.Commander[CompleteAuthorizationMessage] = (*CompleteAuthorizationCommand)(nil)
	_ gocmd.Commander[RefreshCredentialMessage]     = (*RefreshCredentialCommand)(nil)
	_ gocmd.Commander[SyncCompaniesMessage]         = (*SyncCompaniesCommand)(nil)
	_ ConnectorService                              = (*core.Service)(nil)
)
