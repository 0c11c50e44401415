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

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/spector-app/bulkedit/internal/api"
	"github.com/spector-app/bulkedit/internal/config"
	"github.com/spector-app/bulkedit/internal/db"
	"github.com/spector-app/bulkedit/internal/executor"
	"github.com/spector-app/bulkedit/internal/middleware"
	"github.com/spector-app/bulkedit/internal/report"
	"github.com/spector-app/bulkedit/internal/shopify"
	"github.com/spector-app/bulkedit/internal/snapshot"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional .env for local development.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	kv, cleanup, err := buildSnapshotKV(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up snapshot storage: %v", err)
	}
	defer cleanup()

	snapshots := snapshot.NewStore(kv)

	catalogClient := shopify.NewClient(shopify.Config{
		ShopDomain: cfg.Shopify.ShopDomain,
		Token:      cfg.Shopify.Token,
		APIVersion: cfg.Shopify.APIVersion,
	}, nil)

	runner := executor.NewService(catalogClient, snapshots,
		executor.WithReadGroupSize(cfg.Executor.ReadGroupSize))
	reports := report.NewService(snapshots)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	apiHandler := middleware.LoggingMiddleware(
		middleware.ShopScopeMiddleware(
			api.NewHTTPHandler(runner, snapshots, reports),
		),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/shops/", corsHandler.Handler(apiHandler))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting bulk edit server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// buildSnapshotKV wires the configured snapshot backend. The Postgres
// backend owns a connection pool and runs migrations on startup; the file
// backend needs only a directory.
func buildSnapshotKV(ctx context.Context, cfg config.Config) (snapshot.KV, func(), error) {
	switch cfg.Snapshot.Backend {
	case config.SnapshotBackendFile:
		kv, err := snapshot.NewFileKV(cfg.Snapshot.Dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() {}, nil
	default:
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(cfg.Database, cfg.Server.MigrationsPath); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return snapshot.NewPostgresKV(conn.Pool), conn.Close, nil
	}
}
