package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/dupes/pkg/trash"
)

func trashCommand() *cli.Command {
	return &cli.Command{
		Name:  "trash",
		Usage: "inspect the trash and restore files from it",
		Subcommands: []*cli.Command{{
			Name:  "list",
			Usage: "list the files in the trash",
			Action: withTrash(func(t *trash.Trash, ctx *cli.Context) error {
				entries, err := t.List()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tDELETED\tORIGINAL PATH")
				for _, entry := range entries {
					fmt.Fprintf(
						w,
						"%s\t%s\t%s\n",
						entry.Name,
						entry.DeletionDate.Format("2006-01-02 15:04:05"),
						entry.OriginalPath,
					)
				}
				return w.Flush()
			}),
		}, {
			Name:      "restore",
			Usage:     "move a file from the trash back to its original path",
			ArgsUsage: "NAME",
			Action: withTrash(func(t *trash.Trash, ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return cli.Exit("usage: dupes trash restore NAME", 2)
				}
				entry, err := t.Restore(ctx.Args().First())
				if err != nil {
					return err
				}
				_, err = fmt.Printf("restored %s\n", entry.OriginalPath)
				return err
			}),
		}},
	}
}

func withTrash(
	f func(t *trash.Trash, ctx *cli.Context) error,
) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := loadConfig(ctx, nil)
		if err != nil {
			return err
		}
		return f(c.Trash(), ctx)
	}
}
