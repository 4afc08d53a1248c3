package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battery_monitor/internal/channel"
	"battery_monitor/internal/client"
	"battery_monitor/internal/config"
	"battery_monitor/internal/handlers"
	"battery_monitor/internal/logger"
	"battery_monitor/internal/metrics"
	"battery_monitor/internal/repository"
	"battery_monitor/internal/repository/db"
	"battery_monitor/internal/server"
	"battery_monitor/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load configs/config.yml (+ BATTERY_* env overrides)
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.LogLevel)

	// open DB
	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// metrics
	reg := prometheus.NewRegistry()
	prom := metrics.New(reg)

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	backend := client.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log, prom)
	push := channel.NewManager(channel.Config{
		URL:            cfg.PushURL(),
		ReconnectDelay: cfg.Channel.ReconnectDelay,
		MaxAttempts:    cfg.Channel.MaxAttempts,
	}, nil, log, prom)

	services := service.NewService(repos, backend, push, service.Options{
		HistorySize: cfg.History.Size,
		ExportDir:   cfg.Export.Dir,
		Metrics:     prom,
		Logger:      log,
	})
	apiHandler := handlers.NewHandler(services, log, reg)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting sync", "backend", cfg.Backend.BaseURL, "push_url", cfg.PushURL())
	if err := services.Sync.Start(ctx); err != nil {
		log.Fatalw("failed to start sync", "err", err)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, services.Sync, srv, log)
}

// openDB initializes the SQLite journal.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", config.DefaultDBPath)
		path = config.DefaultDBPath
	}
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = config.DefaultPort
		}
		log.Infow("http listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, sync service.Sync, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the sync layer first so no late result lands after teardown
	sync.Stop()
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
