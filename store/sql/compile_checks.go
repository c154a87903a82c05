package sqlstore

import "github.com/goliatone/go-crm-connector/core"

var (
	_ core.CredentialStore = (*CredentialStore)(nil)
	_ core.CompanyStore    = (*CompanyStore)(nil)
)
