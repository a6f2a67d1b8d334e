package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/logger"
	"github.com/joho/godotenv"

	lixi "github.com/Ashenafi-pixel/lixi-wheel-server"
	"github.com/Ashenafi-pixel/lixi-wheel-server/config"
	"github.com/Ashenafi-pixel/lixi-wheel-server/ledger"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
	"github.com/Ashenafi-pixel/lixi-wheel-server/server"
	"github.com/Ashenafi-pixel/lixi-wheel-server/store"
)

func main() {
	// .env in cwd, then the project root one level up.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg := config.Load()

	defer initLogger(cfg).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := prize.LoadCatalog(cfg.PrizeCatalogFile)
	if err != nil {
		logger.Fatalf("lixi: prize catalog: %v", err)
	}

	var st ledger.Store
	var pinger server.Pinger
	if cfg.DatabaseURL != "" {
		db, err := lixi.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("lixi: open database: %v", err)
		}
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatalf("lixi: migrate: %v", err)
		}
		st, pinger = pg, pg
		logger.Infof("lixi: using postgres store")
	} else {
		fs, err := store.NewFile(cfg.DataDir)
		if err != nil {
			logger.Fatalf("lixi: open data dir %s: %v", cfg.DataDir, err)
		}
		st = fs
		logger.Infof("lixi: DATABASE_URL not set, using file store in %s", cfg.DataDir)
	}

	srv := server.New(cfg, ledger.New(st, catalog), catalog)
	if pinger != nil {
		srv.WithPinger(pinger)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("lixi: %v", err)
		os.Exit(1)
	}
}

// initLogger logs to LIXI_LOG_FILE when set (mirrored to the console with
// LOG_VERBOSE), otherwise to the console only.
func initLogger(cfg *config.Config) *logger.Logger {
	if cfg.LogFile == "" {
		return logger.Init("lixi", true, false, io.Discard)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l := logger.Init("lixi", true, false, io.Discard)
		logger.Errorf("lixi: open log file %s: %v", cfg.LogFile, err)
		return l
	}
	return logger.Init("lixi", cfg.Verbose, false, f)
}
