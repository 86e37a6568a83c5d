package main

import (
	"os"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tv-reposteria/api/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "bakery",
		Usage: "back-office API for the bakery: recipes, stock, orders and ledger",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ConfigureLogger(); err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("bakery")
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}
