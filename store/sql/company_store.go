package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-crm-connector/core"
)

type CompanyStore struct {
	db    *bun.DB
	repo  repository.Repository[*companyRecord]
	clock func() time.Time
}

// UpsertBatch writes companies keyed on (user_id, remote_id). Within a batch
// the last row for a remote id wins. The batch is written in one transaction.
func (s *CompanyStore) UpsertBatch(ctx context.Context, companies []core.Company) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: company store is not configured")
	}
	if len(companies) == 0 {
		return 0, nil
	}

	now := s.now()
	order := make([]string, 0, len(companies))
	byKey := make(map[string]*companyRecord, len(companies))
	for _, company := range companies {
		record := newCompanyRecord(company, now)
		if record.UserID == "" || record.RemoteID == "" {
			return 0, fmt.Errorf("sqlstore: company user id and remote id are required")
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		key := record.UserID + "\x00" + record.RemoteID
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = record
	}
	records := make([]*companyRecord, 0, len(order))
	for _, key := range order {
		records = append(records, byKey[key])
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, insertErr := tx.NewInsert().
			Model(&records).
			On("CONFLICT (user_id, remote_id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("domain = EXCLUDED.domain").
			Set("industry = EXCLUDED.industry").
			Set("description = EXCLUDED.description").
			Set("phone = EXCLUDED.phone").
			Set("employee_count = EXCLUDED.employee_count").
			Set("annual_revenue = EXCLUDED.annual_revenue").
			Set("city = EXCLUDED.city").
			Set("country = EXCLUDED.country").
			Set("location = EXCLUDED.location").
			Set("remote_created_at = EXCLUDED.remote_created_at").
			Set("remote_updated_at = EXCLUDED.remote_updated_at").
			Set("raw_properties = EXCLUDED.raw_properties").
			Set("synced_at = EXCLUDED.synced_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return insertErr
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *CompanyStore) Get(ctx context.Context, userID string, remoteID string) (core.Company, error) {
	if s == nil || s.repo == nil {
		return core.Company{}, fmt.Errorf("sqlstore: company store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("remote_id", "=", strings.TrimSpace(remoteID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Company{}, err
	}
	if len(records) == 0 {
		return core.Company{}, fmt.Errorf("%w: %s/%s", core.ErrCompanyNotFound, userID, remoteID)
	}
	return records[0].toDomain(), nil
}

func (s *CompanyStore) ListByUser(ctx context.Context, userID string) ([]core.Company, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: company store is not configured")
	}
	var records []*companyRecord
	if err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", strings.TrimSpace(userID)).
		OrderExpr("?TableAlias.remote_id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.Company, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *CompanyStore) Count(ctx context.Context, userID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: company store is not configured")
	}
	return s.db.NewSelect().
		Model((*companyRecord)(nil)).
		Where("?TableAlias.user_id = ?", strings.TrimSpace(userID)).
		Count(ctx)
}

func (s *CompanyStore) now() time.Time {
	if s.clock != nil {
		return s.clock().UTC()
	}
	return time.Now().UTC()
}
