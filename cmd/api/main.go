package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/usuarios/internal/cache"
	"github.com/geocoder89/usuarios/internal/config"
	"github.com/geocoder89/usuarios/internal/db"
	httpx "github.com/geocoder89/usuarios/internal/http"
	"github.com/geocoder89/usuarios/internal/http/handlers"
	"github.com/geocoder89/usuarios/internal/observability"
	"github.com/geocoder89/usuarios/internal/repo/cached"
	"github.com/geocoder89/usuarios/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type usuariosCache interface {
	cached.Store
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Env:         cfg.Env,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// the executor opens one connection per statement; nothing is dialed here
	exec := db.NewExecutor(db.Config{
		URL:            cfg.DBURL,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, log, prom)

	checks := map[string]handlers.PingFunc{
		"db": exec.Ping,
	}

	var store handlers.UsuariosStore = postgres.NewUsuariosRepo(exec)

	if cfg.CacheTTL > 0 {
		var c usuariosCache
		if cfg.RedisAddr != "" {
			c = cache.NewRedisUsuarios(cache.RedisConfig{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, cfg.CacheTTL, log)
			checks["cache"] = c.Ping
		} else {
			c = cache.NewMemoryUsuarios(cfg.CacheTTL)
		}
		defer c.Close()

		store = cached.NewUsuariosRepo(store, c, prom)
		log.Info("usuario cache enabled", "ttl", cfg.CacheTTL.String(), "redis", cfg.RedisAddr != "")
	}

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Usuarios: store,
		Checks:   checks,
		Prom:     prom,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
