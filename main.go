package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"siege_server/logic"
	"siege_server/network"
	"siege_server/storage"
)

func main() {
	configPath := flag.String("config", envOr("SIEGE_CONFIG", "config.json"), "path to the JSON config")
	flag.Parse()

	// 1. Load Config
	cfg, err := logic.LoadGameConfig(*configPath)
	if err != nil {
		// Logger is not configured yet; fall back to a production one.
		zap.Must(zap.NewProduction()).Fatal("load config", zap.String("path", *configPath), zap.Error(err))
	}
	if dsn := os.Getenv("SIEGE_PG_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("SIEGE_DB_PATH"); path != "" {
		cfg.Storage.SQLitePath = path
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	results, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal("open result store", zap.Error(err))
	}
	defer results.Close()

	var source storage.SnapshotSource = storage.FileSnapshots{Dir: cfg.Storage.BasesDir}
	if cfg.Storage.PostgresDSN != "" {
		pg, err := storage.NewPGStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal("open base store", zap.Error(err))
		}
		defer pg.Close()
		source = pg
		logger.Info("base layouts from postgres")
	} else {
		logger.Info("base layouts from files", zap.String("dir", cfg.Storage.BasesDir))
	}

	// 3. Sessions + Router
	manager := network.NewSessionManager(cfg, source, results, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: manager.Handler(results),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	// 4. Start Server
	logger.Info("siege server listening", zap.String("addr", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
	// Hijacked websocket connections outlive Shutdown.
	manager.Shutdown("Server shutting down")
}

func buildLogger(cfg *logic.GameConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
