package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type integrationRecord struct {
	bun.BaseModel `bun:"table:integrations,alias:ig"`

	ID                 string         `bun:"id,pk"`
	UserID             string         `bun:"user_id,notnull"`
	IntegrationType    string         `bun:"integration_type,notnull"`
	AccessToken        string         `bun:"access_token,notnull"`
	RefreshToken       string         `bun:"refresh_token,notnull"`
	TokenExpiresAt     *time.Time     `bun:"token_expires_at,nullzero"`
	WorkspaceID        string         `bun:"workspace_id,notnull"`
	AdditionalSettings map[string]any `bun:"additional_settings,type:jsonb,notnull"`
	CreatedAt          time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type companyRecord struct {
	bun.BaseModel `bun:"table:companies,alias:co"`

	ID              string         `bun:"id,pk"`
	UserID          string         `bun:"user_id,notnull"`
	RemoteID        string         `bun:"remote_id,notnull"`
	Name            *string        `bun:"name"`
	Domain          *string        `bun:"domain"`
	Industry        *string        `bun:"industry"`
	Description     *string        `bun:"description"`
	Phone           *string        `bun:"phone"`
	EmployeeCount   *int64         `bun:"employee_count"`
	AnnualRevenue   *float64       `bun:"annual_revenue"`
	City            *string        `bun:"city"`
	Country         *string        `bun:"country"`
	Location        *string        `bun:"location"`
	RemoteCreatedAt *time.Time     `bun:"remote_created_at,nullzero"`
	RemoteUpdatedAt *time.Time     `bun:"remote_updated_at,nullzero"`
	RawProperties   map[string]any `bun:"raw_properties,type:jsonb,notnull"`
	SyncedAt        time.Time      `bun:"synced_at,notnull"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
