package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-crm-connector/core"
)

func newIntegrationRecord(in core.IntegrationCredential, now time.Time) *integrationRecord {
	key := in.Key()
	return &integrationRecord{
		ID:                 strings.TrimSpace(in.ID),
		UserID:             key.UserID,
		IntegrationType:    key.IntegrationType,
		AccessToken:        in.AccessToken,
		RefreshToken:       in.RefreshToken,
		TokenExpiresAt:     cloneTimePointer(in.TokenExpiresAt),
		WorkspaceID:        strings.TrimSpace(in.WorkspaceID),
		AdditionalSettings: copyAnyMap(in.AdditionalSettings),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (r *integrationRecord) toDomain() core.IntegrationCredential {
	if r == nil {
		return core.IntegrationCredential{}
	}
	return core.IntegrationCredential{
		ID:                 r.ID,
		UserID:             r.UserID,
		IntegrationType:    r.IntegrationType,
		AccessToken:        r.AccessToken,
		RefreshToken:       r.RefreshToken,
		TokenExpiresAt:     cloneTimePointer(r.TokenExpiresAt),
		WorkspaceID:        r.WorkspaceID,
		AdditionalSettings: copyAnyMap(r.AdditionalSettings),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func newCompanyRecord(in core.Company, now time.Time) *companyRecord {
	syncedAt := in.SyncedAt.UTC()
	if syncedAt.IsZero() {
		syncedAt = now
	}
	return &companyRecord{
		ID:              strings.TrimSpace(in.ID),
		UserID:          strings.TrimSpace(in.UserID),
		RemoteID:        strings.TrimSpace(in.RemoteID),
		Name:            in.Name,
		Domain:          in.Domain,
		Industry:        in.Industry,
		Description:     in.Description,
		Phone:           in.Phone,
		EmployeeCount:   in.EmployeeCount,
		AnnualRevenue:   in.AnnualRevenue,
		City:            in.City,
		Country:         in.Country,
		Location:        in.Location,
		RemoteCreatedAt: cloneTimePointer(in.RemoteCreatedAt),
		RemoteUpdatedAt: cloneTimePointer(in.RemoteUpdatedAt),
		RawProperties:   copyAnyMap(in.RawProperties),
		SyncedAt:        syncedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (r *companyRecord) toDomain() core.Company {
	if r == nil {
		return core.Company{}
	}
	return core.Company{
		ID:              r.ID,
		UserID:          r.UserID,
		RemoteID:        r.RemoteID,
		Name:            r.Name,
		Domain:          r.Domain,
		Industry:        r.Industry,
		Description:     r.Description,
		Phone:           r.Phone,
		EmployeeCount:   r.EmployeeCount,
		AnnualRevenue:   r.AnnualRevenue,
		City:            r.City,
		Country:         r.Country,
		Location:        r.Location,
		RemoteCreatedAt: cloneTimePointer(r.RemoteCreatedAt),
		RemoteUpdatedAt: cloneTimePointer(r.RemoteUpdatedAt),
		RawProperties:   copyAnyMap(r.RawProperties),
		SyncedAt:        r.SyncedAt.UTC(),
	}
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
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
