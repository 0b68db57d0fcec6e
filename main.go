package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mbolis/freewill-survey/app"
	"github.com/mbolis/freewill-survey/config"
	"github.com/mbolis/freewill-survey/database"
	"github.com/mbolis/freewill-survey/log"
	"github.com/mbolis/freewill-survey/routes"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("main.dotenv:", err)
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	store, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}

	if cfg.InitOnly {
		err = os.MkdirAll(cfg.BackupDir, 0o755)
		store.Close()
		if err != nil {
			log.Fatal("main.init.backup_dir:", err)
		}
		log.Info("Database initialization complete")
		log.Infof("Database location: %s (SQLite %s)", cfg.DBPath, database.Version())
		log.Infof("CSV export location: %s", cfg.ExportPath)
		log.Infof("Backup directory: %s", cfg.BackupDir)
		return
	}

	app := app.New(store, cfg)
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("main.close:", err)
		}
	}()

	if err = app.Schedule(); err != nil {
		log.Error("main.scheduler:", err)
		return
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Error("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// in-flight requests must drain before the store is closed
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-drained
	}
	return err
}
