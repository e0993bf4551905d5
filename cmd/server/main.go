package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zarishnasir123/LawFlow-sub000/internal/config"
	"github.com/zarishnasir123/LawFlow-sub000/internal/db"
	"github.com/zarishnasir123/LawFlow-sub000/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	if migrateOnlyFlag != nil && *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(cfg.DatabasePath); err != nil {
			log.Fatalf("migrate-only failed: %v", err)
		}
		log.Println("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.ConnectAndMigrate(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	log.Printf("Starting server env=%s port=%s", cfg.Env, cfg.Port)

	app, err := server.New(dbConn, cfg)
	if err != nil {
		log.Fatalf("app setup failed: %v", err)
	}
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: app.Handler}

	// autosave loop: flush dirty case snapshots on a fixed tick
	stopAutosave := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.AutosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := app.Cases.FlushDirty(); n > 0 {
					log.Printf("autosave: flushed %d case(s)", n)
				}
			case <-stopAutosave:
				return
			}
		}
	}()

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")
	close(stopAutosave)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	// final flush so in-flight edits survive the restart
	if n := app.Cases.FlushDirty(); n > 0 {
		log.Printf("final flush: saved %d case(s)", n)
	}
	log.Println("Server gracefully stopped")
}
