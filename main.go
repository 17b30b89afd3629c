package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"roomsync/config"
	"roomsync/icsfeed"
	"roomsync/scrape"
	"roomsync/security"
	"roomsync/store"
)

const VERSION = "0.1.0"

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Service string `json:"service"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting roomsync server...")

	cfg, err := config.Load(getEnv("ROOMSYNC_CONFIG", "roomsync.yaml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	redisClient, err := store.InitRedis(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")

	tokens := security.NewTokenStore(redisClient)
	clientID := os.Getenv("CALENDAR_CLIENT_ID")
	clientSecret := os.Getenv("CALENDAR_CLIENT_SECRET")
	redirectURL := getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/google/callback")
	if clientID != "" && clientSecret != "" {
		tokens.Configure(clientID, clientSecret, redirectURL)
	} else {
		log.Println("Calendar OAuth credentials not provided; sync runs will fail until configured")
	}
	account := getEnv("CALENDAR_ACCOUNT", "default")

	scraper := scrape.New(scrape.Options{
		BaseURL:     getEnv("SCRAPE_BASE_URL", cfg.Scrape.BaseURL),
		FindPath:    cfg.Scrape.FindPath,
		UserDataDir: cfg.Scrape.UserDataDir,
		Headless:    cfg.Scrape.Headless,
		Timeout:     cfg.Scrape.Timeout(),
		MaxPages:    cfg.Scrape.MaxPages,
		PreferGrid:  cfg.Scrape.PreferGrid,
	})

	reports := store.NewReportStore(redisClient)
	runStream := store.NewRunStream(redisClient)
	history, err := store.OpenHistory(cfg.HistoryPath)
	if err != nil {
		log.Fatalf("Failed to open run history: %v", err)
	}
	defer history.Close()

	feed := icsfeed.New(cfg.CalendarName, cfg.Summary)

	runner := NewSyncRunner(cfg, scraper, tokens, account, reports, runStream, history, feed)
	if err := runner.StartSchedule(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer runner.Stop()

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	newGoogleAuthHandler(tokens, account).registerRoutes(r)
	registerSyncRoutes(r, runner, reports, runStream, history, feed)

	srv := &http.Server{
		Handler:      r,
		Addr:         getEnv("LISTEN_ADDR", cfg.Listen),
		WriteTimeout: 300 * time.Second,
		ReadTimeout:  300 * time.Second,
	}

	log.Printf("roomsync v%s listening on %s", VERSION, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		OK:      true,
		Version: VERSION,
		Service: "roomsync",
	})
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": "roomsync API server",
		"version": VERSION,
	})
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
