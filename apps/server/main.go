package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"baccarat-road/apps/server/internal/config"
	"baccarat-road/apps/server/internal/gateway"
	"baccarat-road/apps/server/internal/httpapi"
	"baccarat-road/apps/server/internal/prefs"
	"baccarat-road/apps/server/internal/session"
	"baccarat-road/apps/server/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Server] Failed to load config: %v", err)
	}

	storeService, storeMode, err := store.NewService(cfg.Store)
	if err != nil {
		log.Fatalf("[Server] Failed to init store: %v", err)
	}
	defer storeService.Close()
	prefsStore, prefsMode, err := prefs.NewStore(cfg.Prefs)
	if err != nil {
		log.Fatalf("[Server] Failed to init prefs: %v", err)
	}
	defer prefsStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := session.New(ctx, session.Options{
		Engine:   cfg.EngineConfig(),
		Store:    storeService,
		Prefs:    prefsStore,
		Reminder: cfg.Timer.Reminder,
	})
	if err != nil {
		log.Fatalf("[Server] Failed to load session: %v", err)
	}

	gw := gateway.New(sess, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(sess, gw.HandleWebSocket, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[Server] Store mode: %s", storeMode)
	log.Printf("[Server] Prefs mode: %s", prefsMode)
	log.Printf("[Server] Road columns: min=%d track=%d", cfg.Road.MinColumns, cfg.Road.MinTrackColumns)
	log.Printf("[Server] Starting server on %s", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Server] Failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[Server] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	gw.Close()
	if err := sess.Flush(shutdownCtx); err != nil {
		log.Printf("[Server] Flush pending writes failed: %v", err)
	}
	sess.Stop()
}
