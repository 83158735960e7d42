package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/dupes/pkg/api"
	"github.com/weberc2/dupes/pkg/config"
	"github.com/weberc2/dupes/pkg/jobstore"
	"github.com/weberc2/dupes/pkg/logger"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the search service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "The address to listen on.",
			},
		},
		Action: serve,
	}
}

func serve(ctx *cli.Context) error {
	c, err := loadConfig(ctx, func(c *config.Config) {
		if ctx.IsSet("addr") {
			c.Addr = ctx.String("addr")
		}
	})
	if err != nil {
		return err
	}

	log := c.Logger(os.Stderr)
	runCtx, stop := signal.NotifyContext(
		logger.Set(ctx.Context, log),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	searches, closeSearches, err := c.SearchStore(runCtx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSearches(); err != nil {
			log.Error("closing search store", "err", err.Error())
		}
	}()
	if pg, ok := searches.(*jobstore.PostgresSearchStore); ok {
		if err := pg.EnsureTable(runCtx); err != nil {
			return err
		}
	}

	manager := api.Manager{
		Searches:     searches,
		Options:      c.Options(),
		Trash:        c.Trash(),
		ExportBucket: c.ExportBucket,
		ExportPrefix: c.ExportPrefix,
		Logger:       log,
	}
	if exports, err := c.ObjectStore(); err != nil {
		log.Warn("report exports disabled", "err", err.Error())
	} else {
		manager.Exports = exports
	}

	service := api.HTTPService{Manager: &manager}
	if key := c.AccessKey.Std(); key != nil {
		service.Auth = &api.Authenticator{Key: key}
	} else {
		log.Warn("no access key configured; api authorization disabled")
	}

	server := api.Server{Service: &service, Logger: log, AccessLog: os.Stderr}
	return server.Run(runCtx, c.Addr)
}
