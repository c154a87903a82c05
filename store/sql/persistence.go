package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/migrations"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return defaultPingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "crm-connector"
}

// MigrationDialect maps a configured driver name to its migration dialect.
func MigrationDialect(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return migrations.DialectPostgres, nil
	case "sqlite", "sqlite3":
		return migrations.DialectSQLite, nil
	default:
		return "", core.ConfigurationError(fmt.Sprintf("sqlstore: unsupported database driver %q", driver))
	}
}

// NewPersistenceClient opens the configured database and wraps it in a
// go-persistence-bun client with the matching bun dialect.
func NewPersistenceClient(cfg core.DatabaseConfig) (*persistence.Client, error) {
	dialect, err := MigrationDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, core.ConfigurationError("sqlstore: database dsn is required")
	}

	var (
		driverName string
		bunDialect schema.Dialect
	)
	switch dialect {
	case migrations.DialectSQLite:
		driverName = "sqlite3"
		bunDialect = sqlitedialect.New()
	default:
		driverName = "postgres"
		bunDialect = pgdialect.New()
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, core.StorageError("open database", err)
	}
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver: driverName,
		server: dsn,
		debug:  cfg.Debug,
	}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, core.StorageError("create persistence client", err)
	}
	return client, nil
}

// RegisterMigrations registers the embedded migrations for one dialect on
// the client. Call Migrate on the client afterwards.
func RegisterMigrations(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return core.ConfigurationError("sqlstore: persistence client is required")
	}
	_, err := migrations.Register(ctx, func(_ context.Context, target string, _ string, fsys fs.FS) error {
		if target != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(dialect))
	return err
}

func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if err := RegisterMigrations(ctx, client, dialect); err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return core.StorageError("apply migrations", err)
	}
	return nil
}
