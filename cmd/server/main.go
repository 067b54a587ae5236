/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the GreenFlow Impact Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment config
  2. Initialize SQLite store
  3. Wire classifier, deriver, engine, and API handler
  4. Start background refresh scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: impact.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  LOG_LEVEL          debug/info/warn/error (default: info)
  CLASSIFIER_URL     External SDG classifier base URL (empty: keyword only)
  CLASSIFIER_API_KEY Bearer token for the classifier
  SCORING_JSON       Scoring config overrides as JSON (empty: defaults)
  REFRESH_INTERVAL   Scheduler tick interval (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the refresh scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/impact.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with an external classifier
  CLASSIFIER_URL=https://classifier.internal ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/greenflow/impact-engine/api"
	"github.com/greenflow/impact-engine/classify"
	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/factory"
	"github.com/greenflow/impact-engine/metrics"
	"github.com/greenflow/impact-engine/store/sqlite"
)

type config struct {
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	ClassifierURL    string        `envconfig:"CLASSIFIER_URL"`
	ClassifierAPIKey string        `envconfig:"CLASSIFIER_API_KEY"`
	ScoringJSON      string        `envconfig:"SCORING_JSON"`
	RefreshInterval  time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
}

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "impact.db", "SQLite database path")
	flag.Parse()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to read environment config")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Classifier: external service when configured, keyword fallback always.
	var primary csr.Classifier
	if cfg.ClassifierURL != "" {
		primary = classify.New(cfg.ClassifierURL, cfg.ClassifierAPIKey)
		log.WithField("url", cfg.ClassifierURL).Info("Using external SDG classifier")
	}
	classifier := csr.NewResilientClassifier(primary, log)

	scoring, err := factory.ParseScoringConfig(cfg.ScoringJSON)
	if err != nil {
		log.WithError(err).Fatal("Invalid SCORING_JSON")
	}

	deriver := csr.NewDeriver(classifier)
	deriver.Scoring = scoring

	engine := metrics.NewEngine(store, deriver, log)
	handler := api.NewHandler(store, engine, log)

	// Keep quarter windows and the dashboard cache current.
	scheduler := api.NewRefreshScheduler(engine, log)
	scheduler.CheckInterval = cfg.RefreshInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Server starting on http://localhost:%d", *port)
		log.Infof("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
