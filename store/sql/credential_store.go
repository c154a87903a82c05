package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-crm-connector/core"
)

// TokenCipher seals token columns at rest. Open must accept values that were
// written without sealing.
type TokenCipher interface {
	Seal(ctx context.Context, plaintext string) (string, error)
	Open(ctx context.Context, stored string) (string, error)
}

type plaintextCipher struct{}

func (plaintextCipher) Seal(_ context.Context, plaintext string) (string, error) {
	return plaintext, nil
}

func (plaintextCipher) Open(_ context.Context, stored string) (string, error) {
	return stored, nil
}

type CredentialStore struct {
	db     *bun.DB
	repo   repository.Repository[*integrationRecord]
	cipher TokenCipher
	clock  func() time.Time
}

func (s *CredentialStore) Get(ctx context.Context, key core.IntegrationKey) (core.IntegrationCredential, error) {
	if s == nil || s.repo == nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	key = core.NewIntegrationKey(key.UserID, key.IntegrationType)
	if err := key.Validate(); err != nil {
		return core.IntegrationCredential{}, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", key.UserID),
		repository.SelectBy("integration_type", "=", key.IntegrationType),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.IntegrationCredential{}, err
	}
	if len(records) == 0 {
		return core.IntegrationCredential{}, fmt.Errorf("%w: %s", core.ErrCredentialNotFound, key.String())
	}
	return s.open(ctx, records[0])
}

// Upsert writes the credential keyed on (user_id, integration_type). An
// existing row keeps its id and created_at; every other column is replaced.
func (s *CredentialStore) Upsert(ctx context.Context, in core.IntegrationCredential) (core.IntegrationCredential, error) {
	if s == nil || s.db == nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	key := in.Key()
	if err := key.Validate(); err != nil {
		return core.IntegrationCredential{}, err
	}

	record := newIntegrationRecord(in, s.now())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if err := s.seal(ctx, record); err != nil {
		return core.IntegrationCredential{}, err
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id, integration_type) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expires_at = EXCLUDED.token_expires_at").
		Set("workspace_id = EXCLUDED.workspace_id").
		Set("additional_settings = EXCLUDED.additional_settings").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.IntegrationCredential{}, err
	}
	return s.Get(ctx, key)
}

func (s *CredentialStore) UpdateTokens(
	ctx context.Context,
	key core.IntegrationKey,
	expectedRefreshToken string,
	grant core.TokenGrant,
) (core.IntegrationCredential, error) {
	if s == nil || s.db == nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	key = core.NewIntegrationKey(key.UserID, key.IntegrationType)
	if err := key.Validate(); err != nil {
		return core.IntegrationCredential{}, err
	}

	accessToken, err := s.cipher.Seal(ctx, grant.AccessToken)
	if err != nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: seal access token: %w", err)
	}
	refreshToken, err := s.cipher.Seal(ctx, grant.RefreshToken)
	if err != nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: seal refresh token: %w", err)
	}
	now := s.now()

	var updated core.IntegrationCredential
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, findErr := findIntegrationTx(ctx, tx, key)
		if findErr != nil {
			return findErr
		}
		storedRefresh, openErr := s.cipher.Open(ctx, record.RefreshToken)
		if openErr != nil {
			return fmt.Errorf("sqlstore: open refresh token: %w", openErr)
		}
		if storedRefresh != expectedRefreshToken {
			return core.ErrCredentialConflict
		}

		res, updateErr := tx.NewUpdate().
			Model((*integrationRecord)(nil)).
			Set("access_token = ?", accessToken).
			Set("refresh_token = ?", refreshToken).
			Set("token_expires_at = ?", cloneTimePointer(grant.ExpiresAt)).
			Set("updated_at = ?", now).
			Where("id = ?", record.ID).
			Where("refresh_token = ?", record.RefreshToken).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		if affected, rowsErr := res.RowsAffected(); rowsErr == nil && affected == 0 {
			return core.ErrCredentialConflict
		}

		record.AccessToken = grant.AccessToken
		record.RefreshToken = grant.RefreshToken
		record.TokenExpiresAt = cloneTimePointer(grant.ExpiresAt)
		record.UpdatedAt = now
		updated = record.toDomain()
		return nil
	})
	if err != nil {
		return core.IntegrationCredential{}, err
	}
	return updated, nil
}

func (s *CredentialStore) seal(ctx context.Context, record *integrationRecord) error {
	accessToken, err := s.cipher.Seal(ctx, record.AccessToken)
	if err != nil {
		return fmt.Errorf("sqlstore: seal access token: %w", err)
	}
	refreshToken, err := s.cipher.Seal(ctx, record.RefreshToken)
	if err != nil {
		return fmt.Errorf("sqlstore: seal refresh token: %w", err)
	}
	record.AccessToken = accessToken
	record.RefreshToken = refreshToken
	return nil
}

func (s *CredentialStore) open(ctx context.Context, record *integrationRecord) (core.IntegrationCredential, error) {
	credential := record.toDomain()
	accessToken, err := s.cipher.Open(ctx, record.AccessToken)
	if err != nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: open access token: %w", err)
	}
	refreshToken, err := s.cipher.Open(ctx, record.RefreshToken)
	if err != nil {
		return core.IntegrationCredential{}, fmt.Errorf("sqlstore: open refresh token: %w", err)
	}
	credential.AccessToken = accessToken
	credential.RefreshToken = refreshToken
	return credential, nil
}

func (s *CredentialStore) now() time.Time {
	if s.clock != nil {
		return s.clock().UTC()
	}
	return time.Now().UTC()
}

func findIntegrationTx(ctx context.Context, tx bun.Tx, key core.IntegrationKey) (*integrationRecord, error) {
	record := &integrationRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", key.UserID).
		Where("?TableAlias.integration_type = ?", key.IntegrationType).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrCredentialNotFound, key.String())
		}
		return nil, err
	}
	return record, nil
}
