package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/estateops/estatecrm/internal/activity"
	"github.com/estateops/estatecrm/internal/gcal"
	"github.com/estateops/estatecrm/internal/notify"
	"github.com/estateops/estatecrm/internal/scheduler"
	"github.com/estateops/estatecrm/internal/web"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and background sync jobs",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func runServe() {
	log.Println("Starting EstateCRM...")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	if err := cfg.Validate(ctx); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	engine, err := newEngine(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize sync engine: %v", err)
	}

	tracker := activity.NewTracker()
	notifier := notify.New(cfg.Notify)
	if notifier.IsEnabled() {
		log.Printf("Email alerts enabled (lead window: %d min)", cfg.Notify.AlertLeadMinutes)
	}
	alerter := notify.NewAlerter(database, notifier, time.Duration(cfg.Notify.AlertLeadMinutes)*time.Minute)

	sched := scheduler.New(database, engine, tracker, alerter, cfg.Sync)

	oauth := gcal.NewOAuthFlow(database, cfg.Google)
	handlers := web.NewHandlers(cfg, database, engine, sched, tracker, oauth)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(web.RequestLogger())
	router.Use(web.SecurityHeaders())

	web.SetupRoutes(router, handlers, cfg.RateLimiting.RPS, cfg.RateLimiting.Burst)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
