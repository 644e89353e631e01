package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophmarks/internal/buildinfo"
	"github.com/dmitrijs2005/gophmarks/internal/client/auth"
	"github.com/dmitrijs2005/gophmarks/internal/client/cli"
	"github.com/dmitrijs2005/gophmarks/internal/client/client"
	"github.com/dmitrijs2005/gophmarks/internal/client/config"
	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/bookmarks"
	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophmarks/internal/client/services"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"golang.org/x/sync/errgroup"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("access token secret is required (-s or jwt_secret)")
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	localDB, err := client.InitDatabase(ctx, cfg.LocalDBPath)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	defer localDB.Close()

	authn := auth.New(auth.Options{
		AuthURL:      cfg.AuthURL,
		APIKey:       cfg.AuthAPIKey,
		Secret:       []byte(cfg.JWTSecret),
		CallbackAddr: cfg.CallbackAddr,
	}, session.NewSQLiteRepository(localDB), logger.With("component", "auth"), cli.PrintOpener(os.Stdout))

	db, err := bookmarks.Open(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	closers := []func() error{db.Close}

	var subscriber feed.Subscriber
	feedLogger := logger.With("component", "feed")
	switch cfg.FeedDriver {
	case "postgres", "":
		subscriber = feed.NewPostgresSubscriber(cfg.DatabaseDSN, feedLogger)
	case "redis":
		rdb := feed.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		closers = append(closers, rdb.Close)
		subscriber = feed.NewRedisSubscriber(rdb, feedLogger)
	default:
		_ = db.Close()
		return fmt.Errorf("unknown feed driver %q", cfg.FeedDriver)
	}

	backend := client.NewBackend(authn, bookmarks.NewPostgresRepository(db, cfg.DatabaseRole), subscriber, logger, closers...)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn(context.Background(), "shutdown", "err", err)
		}
	}()

	store := services.NewStore(backend, logger.With("component", "store"), cfg.RequestTimeout)
	app := cli.NewApp(cfg, store, os.Stdin, os.Stdout)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := store.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		if err := app.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	logger.Info(ctx, "client started", "feed", cfg.FeedDriver, "auth", cfg.AuthURL)
	return g.Wait()
}
