package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"meams.org/internal/asset"
	assetpg "meams.org/internal/asset/pg"
	"meams.org/internal/auth"
	"meams.org/internal/config"
	"meams.org/internal/httpapi"
	"meams.org/internal/obs"
	"meams.org/internal/qr"
	"meams.org/internal/stream"
	"meams.org/internal/web"
)

var version = "1.0.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("MEAMS_COMMIT"))

	cfg := config.FromEnv()
	if cfg.AuthSecret == "" {
		log.Fatal("MEAMS_AUTH_SECRET is required")
	}

	// Stores: PostgreSQL when a DSN is configured, in-memory otherwise
	// (local development and smoke runs).
	var (
		accounts auth.AccountStore
		assets   asset.Store
		db       *sql.DB
	)
	if cfg.PostgresDSN != "" {
		store, err := assetpg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = store.DB()
		assets = store
		accounts = auth.NewPGStore(db)
	} else {
		log.Print("MEAMS_PG_DSN not set, using in-memory stores")
		assets = asset.NewInMemory()
		accounts = auth.NewInMemoryStore()
	}

	opts := []auth.ServiceOption{auth.WithTokenTTL(cfg.TokenTTL)}
	if cfg.AdminUser != "" && cfg.AdminPassword != "" {
		opts = append(opts, auth.WithBuiltinUsers([]auth.BuiltinUser{{
			Username: cfg.AdminUser,
			Password: cfg.AdminPassword,
		}}))
	}
	authSvc, err := auth.NewService(accounts, cfg.AuthSecret, opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	pages, err := web.New(cfg.BaseURL)
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:        authSvc,
		Accounts:    accounts,
		Assets:      assets,
		QR:          qr.NewRegistry(assets, cfg.BaseURL),
		Stream:      stream.New(),
		Pages:       pages,
		Ready:       httpapi.ReadyProbe{DB: db},
		Version:     version,
		CORSOrigins: cfg.CORSOrigins,
		RateBurst:   cfg.RateBurst,
		RatePerSec:  cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open until the client leaves.
		IdleTimeout: 60 * time.Second,
	}

	log.Printf("Starting meams-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
