package sqlstore

import (
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithTokenCipher seals credential tokens before they are written.
func WithTokenCipher(cipher TokenCipher) FactoryOption {
	return func(f *RepositoryFactory) {
		if cipher != nil {
			f.cipher = cipher
		}
	}
}

func WithClock(clock func() time.Time) FactoryOption {
	return func(f *RepositoryFactory) {
		if clock != nil {
			f.clock = clock
		}
	}
}

type RepositoryFactory struct {
	db     *bun.DB
	cipher TokenCipher
	clock  func() time.Time

	credentialStore *CredentialStore
	companyStore    *CompanyStore
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{cipher: plaintextCipher{}}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.Build(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.Build(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) Build(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.credentialStore != nil && f.companyStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) CredentialStore() *CredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) CompanyStore() *CompanyStore {
	if f == nil {
		return nil
	}
	return f.companyStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	integrationRepo := repository.NewRepository[*integrationRecord](f.db, integrationHandlers())
	if validator, ok := integrationRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid integration repository wiring: %w", err)
		}
	}

	companyRepo := repository.NewRepository[*companyRecord](f.db, companyHandlers())
	if validator, ok := companyRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid company repository wiring: %w", err)
		}
	}

	f.credentialStore = &CredentialStore{
		db:     f.db,
		repo:   integrationRepo,
		cipher: f.cipher,
		clock:  f.clock,
	}
	f.companyStore = &CompanyStore{
		db:    f.db,
		repo:  companyRepo,
		clock: f.clock,
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
