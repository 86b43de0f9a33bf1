package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/config"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "path to a config file",
	}

	cmd := &cli.Command{
		Name:  "migrations",
		Usage: "apply or roll back the database schema",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply every pending migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					return postgres.MigrateUp(cfg.Database.DSN())
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Value: 1,
						Usage: "number of migrations to roll back",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					steps := int(cmd.Int("steps"))
					if err := postgres.MigrateDown(cfg.Database.DSN(), steps); err != nil {
						return err
					}
					logrus.WithField("steps", steps).Info("Migrations rolled back")
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}
