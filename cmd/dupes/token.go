package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/dupes/pkg/api"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "manage the keys and tokens which authorize api requests",
		Subcommands: []*cli.Command{{
			Name: "keygen",
			Usage: "print a new private key followed by the public key " +
				"for the `accessKey` setting",
			Action: func(ctx *cli.Context) error {
				key, err := api.GenerateKey()
				if err != nil {
					return err
				}
				return api.WriteKeyPair(os.Stdout, key)
			},
		}, {
			Name:  "sign",
			Usage: "print an access token signed by a private key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "key",
					Usage:    "The PEM file holding the private key.",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "subject",
					Usage:    "The token's subject.",
					Required: true,
				},
				&cli.DurationFlag{
					Name:  "ttl",
					Usage: "How long the token is valid. Zero never expires.",
					Value: 24 * time.Hour,
				},
			},
			Action: func(ctx *cli.Context) error {
				data, err := os.ReadFile(ctx.String("key"))
				if err != nil {
					return fmt.Errorf("reading private key: %w", err)
				}
				key, err := api.ParsePrivateKey(data)
				if err != nil {
					return err
				}
				token, err := api.SignAccessToken(
					key,
					ctx.String("subject"),
					time.Now(),
					ctx.Duration("ttl"),
				)
				if err != nil {
					return err
				}
				_, err = fmt.Println(token)
				return err
			},
		}},
	}
}
