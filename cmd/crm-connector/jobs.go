package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-crm-connector/adapters/gocommand"
	"github.com/goliatone/go-crm-connector/command"
	"github.com/goliatone/go-crm-connector/core"
)

// withCommands builds the runtime and registers the connector commands on
// the dispatcher for the duration of fn.
func withCommands(ctx context.Context, flags *connectorFlags, state *app, fn func(context.Context) error) error {
	cfg, err := flags.Load(ctx)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, cfg, state)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	subs, err := gocommand.RegisterConnectorCommands(gocommand.NewRegistryAdapter(nil), rt.service)
	if err != nil {
		return err
	}
	defer subs.Unsubscribe()
	return fn(ctx)
}

func cmdSync(state *app) *cli.Command {
	var (
		flags  connectorFlags
		userID string
	)
	cmdFlags := append(flags.Flags(), &cli.StringFlag{
		Name:        "user-id",
		Usage:       "User whose companies are synced",
		Required:    true,
		Destination: &userID,
	})

	return &cli.Command{
		Name:  "sync",
		Usage: "Sync companies for one user without going through HTTP",
		Flags: cmdFlags,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return withCommands(ctx, &flags, state, func(ctx context.Context) error {
				msg := command.SyncCompaniesMessage{UserID: userID}
				if err := gocommand.ValidateMessageContract(msg); err != nil {
					return err
				}
				summary, err := gocommand.DispatchWithResult[command.SyncCompaniesMessage, core.SyncSummary](ctx, msg)
				if err != nil {
					return err
				}
				state.provider.GetLogger("sync").Info(summary.Message(),
					"user_id", summary.UserID,
					"count", summary.Count,
					"pages", summary.Pages,
					"next_cursor", summary.NextCursor,
				)
				return nil
			})
		},
	}
}

func cmdRefresh(state *app) *cli.Command {
	var (
		flags  connectorFlags
		userID string
	)
	cmdFlags := append(flags.Flags(), &cli.StringFlag{
		Name:        "user-id",
		Usage:       "User whose credential is refreshed when stale",
		Required:    true,
		Destination: &userID,
	})

	return &cli.Command{
		Name:  "refresh",
		Usage: "Ensure a user's stored access token is fresh",
		Flags: cmdFlags,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return withCommands(ctx, &flags, state, func(ctx context.Context) error {
				msg := command.RefreshCredentialMessage{UserID: userID}
				if err := gocommand.ValidateMessageContract(msg); err != nil {
					return err
				}
				result, err := gocommand.DispatchWithResult[command.RefreshCredentialMessage, core.RefreshResult](ctx, msg)
				if err != nil {
					return err
				}
				state.provider.GetLogger("refresh").Info("credential checked",
					"user_id", result.Credential.UserID,
					"refreshed", result.Refreshed,
					"expires_at", result.Credential.TokenExpiresAt,
				)
				return nil
			})
		},
	}
}
