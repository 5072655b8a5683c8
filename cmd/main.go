package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/config"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/db"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/handlers"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/logger"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/metrics"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/middleware"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/router"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/services"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage/memory"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage/mongostore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "genshinshop",
		Short:         "Game account shop backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	serve := newServeCmd()
	root.AddCommand(serve, newSeedCmd())
	// Running without a subcommand starts the server.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

// app holds what both commands need after bootstrapping.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  storage.Store
	pinger handlers.Pinger
	close  func()
}

func bootstrap(ctx context.Context, inMemory bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	if inMemory {
		log.Warn("using in-memory store; data is lost on exit")
		return &app{cfg: cfg, log: log, store: memory.New(), close: func() { _ = log.Sync() }}, nil
	}

	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGOURI environment variable not set")
	}
	client, err := db.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout, log)
	if err != nil {
		return nil, err
	}
	store := mongostore.New(client.Database(cfg.Mongo.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		disconnect(client, log)
		return nil, err
	}
	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		pinger: db.NewPinger(client),
		close: func() {
			disconnect(client, log)
			_ = log.Sync()
		},
	}, nil
}

func disconnect(client *mongo.Client, log *zap.Logger) {
	if err := db.Disconnect(client, 10*time.Second); err != nil {
		log.Error("error disconnecting from mongodb", zap.Error(err))
	}
}

func newServeCmd() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, inMemory)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "use the in-memory store instead of MongoDB")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log
	m := metrics.New()
	tokens := services.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(time.Minute, ctx.Done())
	}

	handler := router.New(router.Deps{
		Accounts:       services.NewAccountService(a.store, log),
		Orders:         services.NewOrderService(a.store, a.store, m, log),
		Auth:           services.NewAuthService(a.store, tokens, m, log),
		DB:             a.pinger,
		Metrics:        m,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("addr", server.Addr), zap.String("env", cfg.App.Env))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newSeedCmd() *cobra.Command {
	var withAccounts bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user and optionally load the sample catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()
			cfg, log := a.cfg, a.log

			auth := services.NewAuthService(a.store, services.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer), nil, log)
			created, err := auth.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			if created {
				log.Info("admin user created", zap.String("username", cfg.Admin.Username))
			} else {
				log.Info("admin user already exists", zap.String("username", cfg.Admin.Username))
			}

			if withAccounts {
				removed, err := services.SeedCatalog(ctx, a.store, services.SampleAccounts())
				if err != nil {
					return fmt.Errorf("seed accounts: %w", err)
				}
				log.Info("sample accounts loaded", zap.Int64("removed", removed), zap.Int("inserted", len(services.SampleAccounts())))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withAccounts, "accounts", false, "replace the catalog with the sample accounts")
	return cmd
}
