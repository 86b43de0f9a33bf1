package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdhttp "net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/livepoll/internal/adapters/feed/memory"
	"github.com/vncsmyrnk/livepoll/internal/adapters/feed/pgnotify"
	"github.com/vncsmyrnk/livepoll/internal/adapters/feed/redis"
	"github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cmd := &cli.Command{
		Name:  "livepoll",
		Usage: "serve the live poll API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a config file (defaults to ./config.yml when present)",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides http.addr",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "apply pending migrations before serving",
			},
		},
		Action: serve,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(); err != nil {
		return err
	}
	if cmd.IsSet("addr") {
		cfg.HTTP.Addr = cmd.String("addr")
	}

	dsn := cfg.Database.DSN()
	if cmd.Bool("migrate") {
		if err := postgres.MigrateUp(dsn); err != nil {
			return err
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	feed, publisher, closeFeed, err := newFeed(ctx, cfg, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFeed(); err != nil {
			logrus.WithError(err).Warn("failed to close feed")
		}
	}()

	pollRepo := postgres.NewPollRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	responseRepo := postgres.NewResponseRepository(db)

	pollSvc := services.NewPollService(pollRepo)
	voteSvc := services.NewVoteService(pollRepo, sessionRepo, responseRepo, publisher)
	resultsSvc := services.NewResultsService(pollRepo, responseRepo, feed)

	handler := http.NewHandler(
		http.NewPollHandler(pollSvc),
		http.NewVoteHandler(pollSvc, voteSvc),
		http.NewResultsHandler(resultsSvc, originPatterns(cfg.HTTP.AllowedOrigins)),
		db,
		cfg.HTTP.AllowedOrigins,
	)
	server := &stdhttp.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{
			"addr": cfg.HTTP.Addr,
			"feed": cfg.Feed.Driver,
		}).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newFeed returns the live feed for the configured driver and the publisher
// vote submission announces to.
func newFeed(ctx context.Context, cfg *config.Config, dsn string) (ports.ResponseFeed, ports.ResponsePublisher, func() error, error) {
	switch cfg.Feed.Driver {
	case config.FeedRedis:
		feed, err := redis.NewFromURL(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		return feed, feed, feed.Close, nil
	case config.FeedMemory:
		broker := memory.NewBroker("memory", memory.DefaultBuffer)
		return broker, broker, func() error { return nil }, nil
	default:
		feed, err := pgnotify.New(dsn)
		if err != nil {
			return nil, nil, nil, err
		}
		return feed, ports.NopPublisher{}, feed.Close, nil
	}
}

// originPatterns turns CORS origins into the host patterns the websocket
// origin check expects.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			patterns = append(patterns, origin)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
