package main

import (
	"github.com/urfave/cli/v2"
	"github.com/weberc2/dupes/pkg/jobstore"
)

type Store = jobstore.PostgresSearchStore

func storeCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "manage the postgres search table",
		Subcommands: []*cli.Command{{
			Name:    "ensure",
			Aliases: []string{"create"},
			Usage:   "create the table if it doesn't already exist",
			Action: withStore(func(store *Store, ctx *cli.Context) error {
				return store.EnsureTable(ctx.Context)
			}),
		}, {
			Name:    "drop",
			Aliases: []string{"delete"},
			Usage:   "drop the table",
			Action: withStore(func(store *Store, ctx *cli.Context) error {
				return store.DropTable(ctx.Context)
			}),
		}, {
			Name:  "clear",
			Usage: "delete every search without dropping the table",
			Action: withStore(func(store *Store, ctx *cli.Context) error {
				return store.ClearTable(ctx.Context)
			}),
		}},
	}
}

func withStore(f func(store *Store, ctx *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		c, err := loadConfig(ctx, nil)
		if err != nil {
			return err
		}
		store, err := jobstore.OpenPostgres(ctx.Context, &c.Postgres)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); err == nil {
				err = closeErr
			}
		}()
		return f(store, ctx)
	}
}
