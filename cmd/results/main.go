package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/vncsmyrnk/livepoll/internal/adapters/feed/pgnotify"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

func main() {
	cmd := &cli.Command{
		Name:      "results",
		Usage:     "print the results of a poll",
		ArgsUsage: "<slug>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a config file",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "keep printing as responses arrive",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: time.Minute,
				Usage: "timeout for a one-off snapshot",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	slug := cmd.Args().First()
	if slug == "" {
		return errors.New("a poll slug is required")
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(); err != nil {
		return err
	}

	dsn := cfg.Database.DSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pollRepo := postgres.NewPollRepository(db)
	responseRepo := postgres.NewResponseRepository(db)

	if !cmd.Bool("watch") {
		ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
		defer cancel()

		results, err := services.NewResultsService(pollRepo, responseRepo, nil).Snapshot(ctx, slug)
		if err != nil {
			return err
		}
		return printResults(os.Stdout, *results)
	}

	feed, err := pgnotify.New(dsn)
	if err != nil {
		return err
	}
	defer feed.Close()

	live, err := services.NewResultsService(pollRepo, responseRepo, feed).Watch(ctx, slug)
	if err != nil {
		return err
	}
	defer live.Close()

	if err := printResults(os.Stdout, live.Results()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-live.Changed():
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stdout)
			if err := printResults(os.Stdout, live.Results()); err != nil {
				return err
			}
		}
	}
}

func printResults(out io.Writer, results domain.Results) error {
	fmt.Fprintf(out, "%s (%d votes)\n", results.Poll.Question, results.TotalVotes)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, opt := range results.Options {
		fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", opt.Option.OptionText, opt.VoteCount, opt.Percentage)
	}
	return tw.Flush()
}
