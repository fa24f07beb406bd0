package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/theLastOfCats/manhwa-go-server/internal/api"
	"github.com/theLastOfCats/manhwa-go-server/internal/auth"
	"github.com/theLastOfCats/manhwa-go-server/internal/catalog"
	"github.com/theLastOfCats/manhwa-go-server/internal/config"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/leveling"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:           "manhwa-server",
		Short:         "Manhwa reading tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path or MySQL DSN (DB_PATH)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (LOG_LEVEL)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	serve.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port (PORT)")

	var overwrite bool
	seed := &cobra.Command{
		Use:   "seed-tasks",
		Short: "Store the built-in level tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cfg, overwrite)
		},
	}
	seed.Flags().BoolVar(&overwrite, "overwrite", false, "replace tasks that already exist")

	root.AddCommand(serve, seed)
	// serve is the default
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	return zc.Build()
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	auth.Init(cfg.JWTSecret, cfg.JWTTTL)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()
	log.Info("database ready", zap.String("dialect", database.Dialect))

	if cfg.SeedLevelTasks {
		tasks, err := leveling.DefaultSeeds()
		if err != nil {
			return err
		}
		if _, err := leveling.Seed(ctx, database, tasks, false, log); err != nil {
			return err
		}
	}

	mangadex := catalog.NewMangaDex(cfg.MangaDexURL, cfg.MangaDexCoverURL, cfg.CatalogTimeout, log.Named("catalog"))
	cached, err := catalog.NewCached(mangadex, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	if err != nil {
		return err
	}
	defer cached.Close()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			DB:              database,
			Catalog:         cached,
			ConflictRetries: cfg.ConflictRetries,
			Log:             log,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, overwrite bool) error {
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()

	tasks, err := leveling.DefaultSeeds()
	if err != nil {
		return err
	}
	n, err := leveling.Seed(ctx, database, tasks, overwrite, log)
	if err != nil {
		return err
	}
	fmt.Printf("%d level tasks written\n", n)
	return nil
}
