package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/dupes/pkg/config"
)

func main() {
	app := cli.App{
		Name:  "dupes",
		Usage: "find duplicate files and move them to the trash",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage: "The YAML config file. Defaults to " +
					"`$XDG_CONFIG_HOME/dupes.yaml`.",
				EnvVars: []string{"DUPES_CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "One of `debug`, `info`, `warn`, or `error`.",
			},
		},
		Commands: []*cli.Command{
			scanCommand(),
			serveCommand(),
			trashCommand(),
			storeCommand(),
			tokenCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig loads the configuration and applies `override`, which copies
// any command-line flags over it, before validating.
func loadConfig(
	ctx *cli.Context,
	override func(c *config.Config),
) (*config.Config, error) {
	var (
		c   *config.Config
		err error
	)
	if file := ctx.String("config"); file != "" {
		c, err = config.LoadFile(file)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
	if override != nil {
		override(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
