package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NESSBZID/bncho/internal/api"
	"github.com/NESSBZID/bncho/internal/factory"
	redisstorage "github.com/NESSBZID/bncho/internal/storage/redis"
	"github.com/NESSBZID/bncho/internal/transport"
)

func newServeCmd() *cobra.Command {
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", "", "TCP listen address (env: BNCHO_ADDR)")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", "", "Status page listen address (env: BNCHO_HTTP_ADDR)")
	cmd.Flags().StringVar(&cfg.StorageType, "storage", "", "Storage backend: memory, redis (env: STORAGE_TYPE)")
	cmd.Flags().StringVar(&cfg.RedisURL, "redis-url", "", "Redis connection URL (env: REDIS_URL)")
	cmd.Flags().StringVar(&cfg.EnvFile, "env-file", "", "Load environment from this file before reading config")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(cfg *Config) error {
	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil {
			return err
		}
	} else {
		// A .env in the working directory is optional.
		_ = godotenv.Load()
	}
	cfg.resolve()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
	}
	if cfg.StorageType == factory.StorageTypeRedis {
		if cfg.RedisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}
	transportCfg := transport.DefaultConfig()
	transportCfg.Addr = cfg.Addr
	factoryCfg.TransportConfig = transportCfg
	apiCfg := api.DefaultConfig()
	apiCfg.Addr = cfg.HTTPAddr
	factoryCfg.APIConfig = apiCfg

	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Storage.Close(); err != nil {
			logger.Error("closing storage", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- app.Transport.ListenAndServe(ctx)
	}()
	go func() {
		errCh <- app.API.ListenAndServe(ctx)
	}()

	loopsDone := make(chan struct{})
	go func() {
		defer close(loopsDone)
		app.Bancho.RunHousekeeping(ctx)
	}()

	logger.Info("server started",
		slog.String("addr", cfg.Addr),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("storage", cfg.StorageType),
	)

	select {
	case err := <-errCh:
		stop()
		<-loopsDone
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		<-loopsDone
		// Listeners unwind on context cancellation; collect their exits.
		<-errCh
		<-errCh
	}

	logger.Info("server stopped")
	return nil
}
