package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// SyncCompanies pulls the caller's remote companies and upserts them on
// (user_id, remote_id). Pages are persisted as they arrive, so a failure on a
// later page leaves earlier pages stored.
func (s *Service) SyncCompanies(ctx context.Context, bearer string) (summary SyncSummary, err error) {
	startedAt := time.Now()
	summary.IntegrationType = s.IntegrationType()
	fields := map[string]any{"integration_type": summary.IntegrationType}
	defer func() {
		fields["count"] = summary.Count
		fields["pages"] = summary.Pages
		s.observeOperation(ctx, startedAt, "sync", err, fields)
	}()

	userID, err := s.resolveCaller(ctx, bearer)
	if err != nil {
		return summary, err
	}
	summary.UserID = userID
	fields["user_id"] = userID
	return s.syncCompaniesForUser(ctx, userID, summary)
}

// SyncCompaniesForUser runs the pipeline for an already resolved user.
func (s *Service) SyncCompaniesForUser(ctx context.Context, userID string) (SyncSummary, error) {
	summary := SyncSummary{IntegrationType: s.IntegrationType(), UserID: strings.TrimSpace(userID)}
	return s.syncCompaniesForUser(ctx, summary.UserID, summary)
}

func (s *Service) syncCompaniesForUser(ctx context.Context, userID string, summary SyncSummary) (SyncSummary, error) {
	if s.companyStore == nil {
		return summary, ConfigurationError("core: company store is not configured")
	}
	if s.provider == nil {
		return summary, ConfigurationError("core: provider is not configured")
	}

	accessToken, err := s.AccessToken(ctx, userID, s.IntegrationType())
	if err != nil {
		return summary, err
	}

	pageSize := s.config.API.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	maxPages := s.config.API.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	properties := s.fieldMapping.Properties()

	cursor := ""
	for summary.Pages < maxPages {
		page, err := s.fetchCompanyPage(ctx, accessToken, PageRequest{
			Limit:      pageSize,
			After:      cursor,
			Properties: properties,
		})
		if err != nil {
			return summary, err
		}

		companies := s.mapCompanies(userID, page.Records)
		if len(companies) > 0 {
			written, err := s.companyStore.UpsertBatch(ctx, companies)
			if err != nil {
				return summary, StorageError("upsert companies", err)
			}
			summary.Count += written
		}
		summary.Pages++
		summary.NextCursor = strings.TrimSpace(page.NextCursor)
		s.logDebug(ctx, "sync.page", map[string]any{
			"integration_type": summary.IntegrationType,
			"user_id":          userID,
			"page":             summary.Pages,
			"records":          len(page.Records),
			"written":          len(companies),
			"has_more":         summary.NextCursor != "",
		})

		if summary.NextCursor == "" || summary.NextCursor == cursor {
			break
		}
		cursor = summary.NextCursor
	}
	return summary, nil
}

func (s *Service) fetchCompanyPage(ctx context.Context, accessToken string, req PageRequest) (RemotePage, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.API.RequestTimeout)
	defer cancel()
	page, err := s.provider.ListCompanies(fetchCtx, accessToken, req)
	if err != nil {
		timedOut := errors.Is(fetchCtx.Err(), context.DeadlineExceeded)
		return RemotePage{}, classifyRemoteError("company fetch", err, timedOut, func(cause error) error {
			return RemoteRequestFailedError("company fetch", cause)
		})
	}
	return page, nil
}

// mapCompanies drops records without a remote id and keeps the last record
// for duplicated ids.
func (s *Service) mapCompanies(userID string, records []RemoteRecord) []Company {
	now := s.now()
	indexByRemoteID := make(map[string]int, len(records))
	companies := make([]Company, 0, len(records))
	for _, record := range records {
		company := MapCompany(userID, record, s.fieldMapping, now)
		if company.RemoteID == "" {
			continue
		}
		if idx, ok := indexByRemoteID[company.RemoteID]; ok {
			companies[idx] = company
			continue
		}
		indexByRemoteID[company.RemoteID] = len(companies)
		companies = append(companies, company)
	}
	return companies
}
