// cmd/gateway/main.go
//
// Adept content gateway – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (conf/global.yaml, .env, ADEPT_* overrides, Vault).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Open the record and API key stores: MySQL, or memory plus an optional
//     YAML seed for local work.
//
//  4. Load the optional GeoLite2 database for submission metadata.
//
//  5. Mount routes on chi:
//
//     • /metrics  – Prometheus exposition
//     • /healthz  – liveness
//     • / and /api – the gateway endpoint
//
//  6. Serve until SIGINT/SIGTERM, then drain.  SIGHUP reloads the config
//     and applies the gateway toggles to subsequent requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/adept-gateway/internal/apikey"
	"github.com/yanizio/adept-gateway/internal/auth"
	"github.com/yanizio/adept-gateway/internal/config"
	"github.com/yanizio/adept-gateway/internal/database"
	"github.com/yanizio/adept-gateway/internal/gateway"
	"github.com/yanizio/adept-gateway/internal/logger"
	"github.com/yanizio/adept-gateway/internal/middleware"
	"github.com/yanizio/adept-gateway/internal/requestinfo"
	"github.com/yanizio/adept-gateway/internal/server"
	"github.com/yanizio/adept-gateway/internal/store"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Stores ──────────────────────────────────────────────────────
	//
	records, keys, closeStores, err := openStores(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer closeStores()

	//
	// ── 2.  GeoLite2 (optional) ─────────────────────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		logOut.Warnw("geo lookups disabled", "err", err)
	}
	defer func() { _ = requestinfo.CloseGeo() }()

	//
	// ── 3.  Router ──────────────────────────────────────────────────────
	//
	gw := gateway.New(gateway.Options{
		Records: records,
		Auth:    auth.NewValidator(keys),
		Config:  cfg.Gateway,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(logOut))
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	api := requestinfo.Enrich(gw)
	r.Handle("/", api)
	r.Handle("/api", api)

	//
	// ── 4.  Serve + reload ──────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logOut.Infow("gateway listening", "addr", cfg.HTTP.ListenAddr, "driver", cfg.Database.Driver)
		return server.Run(gctx, srv)
	})
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				if err := config.Reload(); err != nil {
					logOut.Errorw("config reload failed", "err", err)
					continue
				}
				gw.SetConfig(config.Get().Gateway)
				logOut.Infow("gateway settings reloaded")
			}
		}
	})

	err = g.Wait()
	logOut.Infow("gateway stopped", "err", err)
	return err
}

// openStores returns the record and key stores selected by
// cfg.Database.Driver, plus a closer.
func openStores(ctx context.Context, cfg *config.Config, logOut *zap.SugaredLogger) (store.Store, apikey.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		logOut.Infow("connecting to database")
		db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, database.Options{
			MaxOpenConns:    cfg.Database.MaxOpen,
			MaxIdleConns:    cfg.Database.MaxIdle,
			ConnMaxLifetime: 30 * time.Minute,
			Retries:         5,
			RetryBackoff:    2 * time.Second,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect database: %w", err)
		}
		logOut.Infow("database online")
		return store.NewSQLStore(db), apikey.NewSQLStore(db), closeDB(db, logOut), nil

	default:
		records := store.NewMemoryStore()
		keys := apikey.NewMemoryStore()
		if cfg.Store.SeedFile != "" {
			seed, err := store.LoadSeed(cfg.Store.SeedFile)
			if err != nil {
				return nil, nil, nil, err
			}
			nk, nr, err := seed.Apply(ctx, records, keys, time.Now())
			if err != nil {
				return nil, nil, nil, err
			}
			logOut.Infow("memory stores seeded", "file", cfg.Store.SeedFile, "keys", nk, "records", nr)
		} else {
			logOut.Warnw("memory driver without seed file; every request will fail authentication")
		}
		return records, keys, func() {}, nil
	}
}

func closeDB(db *sqlx.DB, logOut *zap.SugaredLogger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logOut.Warnw("database close failed", "err", err)
		}
	}
}
