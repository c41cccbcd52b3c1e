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

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/yair/whats-on/pkg/collectors"
	"github.com/yair/whats-on/pkg/config"
	"github.com/yair/whats-on/pkg/integrations"
	"github.com/yair/whats-on/pkg/interfaces"
)

func main() {
	log.Println("Starting What's On...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	log.Printf("Upstream: %s (list TTL %ds, detail TTL %ds)",
		cfg.Upstream.BaseURL, cfg.Cache.ListTTLSeconds, cfg.Cache.DetailTTLSeconds)

	upstream, err := integrations.NewUpstreamClient(integrations.UpstreamConfig{
		BaseURL:       cfg.Upstream.BaseURL,
		CanonicalHost: cfg.Upstream.CanonicalHost,
	})
	if err != nil {
		log.Fatalf("Failed to create upstream client: %v", err)
	}

	cache := collectors.NewEventCache(
		upstream,
		time.Duration(cfg.Cache.ListTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.DetailTTLSeconds)*time.Second,
	)

	// The ask log is optional; the service runs fine without it.
	var askLog *collectors.AskLog
	if cfg.AskLog.Path != "" {
		db, err := sql.Open("sqlite3", cfg.AskLog.Path)
		if err != nil {
			log.Fatalf("Failed to open ask log database: %v", err)
		}
		defer db.Close()

		askLog, err = collectors.NewAskLog(db)
		if err != nil {
			log.Fatalf("Failed to create ask log: %v", err)
		}
	}

	// The LLM bridge is optional; without it /ai/chat answers one-shot.
	var llm *integrations.LLMClient
	if cfg.LLM.BaseURL != "" {
		llm, err = integrations.NewLLMClient(integrations.LLMConfig{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			APIKey:  cfg.LLM.APIKey,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to create llm client: %v", err)
		}
	} else {
		log.Println("No LLM endpoint configured; /ai/chat will answer without streaming prose")
	}

	hub := interfaces.NewLiveHub()
	ledger := collectors.NewDedupeLedger(time.Duration(cfg.Webhook.DedupeWindowSeconds) * time.Second)

	var recorder interfaces.AskRecorder
	var reader interfaces.AskReader
	if askLog != nil {
		recorder = askLog
		reader = askLog
	}

	askService := interfaces.NewAskService(cache, recorder)

	eventHandler := interfaces.NewEventHandler(cache)
	var streamer interfaces.TokenStreamer
	if llm != nil {
		streamer = llm
	}
	askHandler := interfaces.NewAskHandler(askService, streamer, cfg.CORS.AllowedOrigin)
	webhookHandler := interfaces.NewWebhookHandler(cfg.Webhook.Secret, ledger, cache, hub, reader)

	router := mux.NewRouter()
	eventHandler.RegisterRoutes(router)
	askHandler.RegisterRoutes(router)
	webhookHandler.RegisterRoutes(router)
	hub.RegisterRoutes(router)

	log.Println("Available routes:")
	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		log.Printf("  %v %s", methods, path)
		return nil
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// WriteTimeout stays at the configured value; 0 keeps /ai/chat and
		// /ws connections open.
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped.")
}
