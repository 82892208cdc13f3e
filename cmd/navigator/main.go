package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/siraya-health/navigator/internal/kb"
	"github.com/siraya-health/navigator/internal/routing"
	"github.com/siraya-health/navigator/internal/session"
	"github.com/siraya-health/navigator/internal/shared/auth"
	"github.com/siraya-health/navigator/internal/shared/config"
	"github.com/siraya-health/navigator/internal/shared/database"
	"github.com/siraya-health/navigator/internal/shared/events"
	"github.com/siraya-health/navigator/internal/shared/metrics"
	secmiddleware "github.com/siraya-health/navigator/internal/shared/middleware"
	"github.com/siraya-health/navigator/internal/triage"
	"github.com/siraya-health/navigator/internal/triagelog"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    events.EventBus
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Initialize database (optional - skip if not available)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running in limited mode without database...")
	} else {
		app.DB = db
		defer db.Close()

		// Run migrations
		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// Initialize event bus (optional - skip if not available)
	bus, err := events.NewEventBus(ctx, cfg.EventStore)
	if err != nil {
		fmt.Printf("Warning: EventStoreDB not available: %v\n", err)
		fmt.Println("Running without event streaming...")
	} else {
		app.Bus = bus
		defer bus.Close()
		fmt.Println("Event bus initialized")
	}

	// Facility knowledge base - missing catalog degrades specialized routing
	index, err := kb.LoadOrEmpty(cfg.KB.CatalogPath)
	if err != nil {
		fmt.Printf("Warning: KB catalog not available: %v\n", err)
		fmt.Println("Specialized facility search will always fall back to CAU")
	} else {
		fmt.Printf("Knowledge base loaded: %d facilities\n", index.Len())
	}
	for _, tipologia := range index.Types() {
		metrics.RecordKBFacilities(tipologia, len(index.ByType(tipologia)))
	}

	// Decision core
	classifier := triage.NewClassifier(triage.DefaultRules())
	if skipped := classifier.SkippedPatterns(); len(skipped) > 0 {
		fmt.Printf("Warning: %d classifier patterns failed to compile and were skipped: %v\n", len(skipped), skipped)
	}
	metrics.RecordSkippedPatterns(len(classifier.SkippedPatterns()))

	router := routing.NewRouter(index, routing.DefaultAreaServices())

	// Session repository: Postgres when available, in-memory otherwise
	var sessionRepo session.Repository
	var logRepo triagelog.Repository
	if app.DB != nil {
		sessionRepo = session.NewPostgresRepository(app.DB.Pool)
		logRepo = triagelog.NewPostgresRepository(app.DB.Pool)
	} else {
		sessionRepo = session.NewMemoryRepository()
		logRepo = triagelog.NewMemoryRepository()
	}

	sessionService := session.NewService(sessionRepo, classifier, router, app.Bus)

	r := chi.NewRouter()

	// Global middleware
	rateLimiter := secmiddleware.NewIPRateLimiter(20, 40)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.InputSanitizer)
	r.Use(rateLimiter.Middleware)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required for now in dev mode)
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		sessionHandler := session.NewHandler(sessionService, time.Duration(cfg.Session.MaxAgeHours)*time.Hour)
		r.Mount("/", sessionHandler.Routes())

		logHandler := triagelog.NewHandler(logRepo)
		r.Mount("/triage", logHandler.Routes())
	})

	// Mirror bus-reported completions into the triage log
	if app.Bus != nil {
		logSubscriber := triagelog.NewSubscriber(logRepo, app.Bus)
		if err := logSubscriber.Start(ctx); err != nil {
			fmt.Printf("Warning: Triage log subscriber failed to start: %v\n", err)
		} else {
			fmt.Println("Triage log subscriber started")
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("SIRAYA Health Navigator")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("KB catalog:     %s (%d facilities)\n", cfg.KB.CatalogPath, index.Len())
	fmt.Printf("EventStore:     %s:%d\n", cfg.EventStore.Host, cfg.EventStore.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "SIRAYA Health Navigator",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		// Check database
		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		// Check event store
		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
