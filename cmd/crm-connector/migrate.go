package main

import (
	"context"

	"github.com/urfave/cli/v3"

	sqlstore "github.com/goliatone/go-crm-connector/store/sql"
)

func cmdMigrate(state *app) *cli.Command {
	var flags connectorFlags

	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the embedded database migrations",
		Flags: flags.Flags(),
		Action: func(ctx context.Context, _ *cli.Command) error {
			db, err := flags.Database(ctx)
			if err != nil {
				return err
			}
			dialect, err := sqlstore.MigrationDialect(db.Driver)
			if err != nil {
				return err
			}
			client, err := sqlstore.NewPersistenceClient(db)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			logger := state.provider.GetLogger("migrate")
			logger.Info("applying migrations", "dialect", dialect)
			if err := sqlstore.Migrate(ctx, client, dialect); err != nil {
				return err
			}
			logger.Info("migrations applied", "dialect", dialect)
			return nil
		},
	}
}
