package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"github.com/weberc2/dupes/pkg/config"
	"github.com/weberc2/dupes/pkg/dupes"
	"github.com/weberc2/dupes/pkg/report"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "search a directory for duplicate files",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "The number of files hashed concurrently.",
			},
			&cli.StringFlag{
				Name:  "algorithm",
				Usage: "One of `md5`, `sha256`, or `blake2b`.",
			},
			&cli.BoolFlag{
				Name: "prefilter",
				Usage: "Compare the first and last kilobyte of each " +
					"candidate before hashing it.",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "One of `pretty`, `json`, or `yaml`.",
				Value: string(report.FormatPretty),
			},
			&cli.BoolFlag{
				Name:  "trash",
				Usage: "Move the selected duplicates to the trash.",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Don't ask before trashing files.",
			},
			&cli.BoolFlag{
				Name:  "export",
				Usage: "Export the report to the configured object store.",
			},
		},
		Action: scan,
	}
}

func scan(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.Exit("usage: dupes scan [options] DIR", 2)
	}

	c, err := loadConfig(ctx, func(c *config.Config) {
		if ctx.IsSet("workers") {
			c.Workers = ctx.Int("workers")
		}
		if ctx.IsSet("algorithm") {
			c.Algorithm = ctx.String("algorithm")
		}
		if ctx.IsSet("prefilter") {
			c.Prefilter = ctx.Bool("prefilter")
		}
	})
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(ctx.String("format"))
	if err != nil {
		return err
	}

	// interrupting aborts the search rather than the process
	searchCtx, stop := signal.NotifyContext(
		ctx.Context,
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	options := c.Options()
	options.Logger = c.Logger(os.Stderr)
	job, err := dupes.StartSearch(searchCtx, ctx.Args().First(), options)
	if err != nil {
		return err
	}

	notifier := report.NewNotifier(os.Stderr)
	notifier.Searching(job.Root())
	for percent := range job.Progress() {
		notifier.Progress(percent)
	}
	outcome, err := job.Wait(context.Background())
	if err != nil {
		return err
	}
	stop()
	notifier.Finished(&outcome)

	switch outcome.State {
	case dupes.StateCompleted:
	case dupes.StateAborted:
		return cli.Exit("", 130)
	default:
		return cli.Exit("", 1)
	}

	r := report.New(job.Root(), outcome.Groups, outcome.Skipped)
	r.ID = uuid.NewString()
	if err := report.Write(os.Stdout, format, &r); err != nil {
		return err
	}

	if ctx.Bool("export") {
		store, err := c.ObjectStore()
		if err != nil {
			return err
		}
		key, err := report.Export(store, c.ExportBucket, c.ExportPrefix, &r)
		if err != nil {
			return err
		}
		notifier.Exported(c.ExportBucket, key)
	}

	if ctx.Bool("trash") {
		return trashSelected(ctx, c, &r, notifier)
	}
	return nil
}

// trashSelected moves the report's selected files to the trash, asking
// first unless `--yes` was given. Files which can't be trashed are reported
// and skipped.
func trashSelected(
	ctx *cli.Context,
	c *config.Config,
	r *report.Report,
	notifier report.Notifier,
) error {
	sizes := map[string]uint64{}
	for _, group := range r.Groups {
		for _, file := range group.Files {
			if file.Selected {
				sizes[file.Path] = group.Size
			}
		}
	}
	selected := r.Selected()
	if len(selected) < 1 {
		return nil
	}

	if !ctx.Bool("yes") {
		ok, err := confirm(
			os.Stdin,
			os.Stderr,
			fmt.Sprintf("move %d files to the trash?", len(selected)),
		)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	t := c.Trash()
	var failures int
	for _, path := range selected {
		entry, err := t.Put(path)
		if err != nil {
			notifier.TrashFailed(path, err)
			failures++
			continue
		}
		notifier.Trashed(sizes[path], &entry)
	}
	if failures > 0 {
		return cli.Exit(fmt.Sprintf("failed to trash %d files", failures), 1)
	}
	return nil
}

// confirm asks a yes-or-no question. Anything other than `y` or `yes` is
// taken as no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N] ", question); err != nil {
		return false, err
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
