/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load configuration (env / .env)
  2. Open the SQLite store (reservations + audit log + catalog)
  3. Optionally seed the catalog from SEED_PATH
  4. Wire the lifecycle engine and start the daily expiry scheduler
  5. Serve the HTTP API with graceful shutdown

SHUTDOWN:
  On SIGINT/SIGTERM the server drains in-flight requests (30s budget),
  then the scheduler and store are stopped. A write that committed before
  shutdown stays committed; nothing is rolled back.
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hotdesk/seat-engine/api"
	"github.com/hotdesk/seat-engine/booking"
	"github.com/hotdesk/seat-engine/config"
	"github.com/hotdesk/seat-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if cfg.SeedPath != "" {
		if err := store.SeedCatalog(context.Background(), cfg.SeedPath); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Printf("Catalog seeded from %s", cfg.SeedPath)
	}

	engine := booking.NewEngine(store, store, store, cfg.Windows)

	scheduler := booking.NewExpiryScheduler(engine, cfg.ExpireAt, cfg.Timezone)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(engine)
	router := api.NewRouter(handler, cfg.JWTSecret, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
