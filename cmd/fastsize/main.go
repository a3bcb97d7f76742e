package main

import (
	"context"
	"log"
	"net/http"
	"syscall"
	"time"

	"gopkg.in/vrecan/death.v3"

	"fastsize/internal/cleanup"
	"fastsize/internal/config"
	"fastsize/internal/fetch"
	"fastsize/internal/handler"
	"fastsize/internal/logging"
	"fastsize/internal/middleware"
	"fastsize/internal/service"
	"fastsize/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.LogDir); err != nil {
		log.Fatalf("Failed to init logging: %v", err)
	}
	defer logging.Close()
	logger := logging.Get("app")

	db, err := storage.NewDB(cfg.DataDir)
	if err != nil {
		logger.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	daemon := cleanup.NewDaemon(db, cleanup.DefaultInterval)
	daemon.Start()
	defer daemon.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow())
	defer limiter.Stop()

	upstream := middleware.NewTrafficStats()
	served := middleware.NewTrafficStats()
	svc := service.New(fetch.NewClient(cfg.ProbeTimeout()), db, upstream, service.OptionsFromConfig(cfg))

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Service:      svc,
			DB:           db,
			Upstream:     upstream,
			Served:       served,
			RateLimiter:  limiter,
			Logger:       middleware.NewRequestLogger(served),
			AdminToken:   cfg.AdminToken,
			BatchMaxURLs: cfg.BatchMaxURLs,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.ProbeTimeout() + 30*time.Second,
	}

	stopped := make(chan struct{})
	hook := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	go hook.WaitForDeathWithFunc(func() {
		defer close(stopped)
		logger.Printf("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	})

	if cfg.AdminToken == "" {
		logger.Printf("ADMIN_TOKEN not set, admin endpoints disabled")
	}
	logger.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}
	<-stopped
}
