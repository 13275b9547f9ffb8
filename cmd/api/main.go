package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/gg-parser/internal/api/handlers"
	"github.com/dvloznov/gg-parser/internal/api/middleware"
	"github.com/dvloznov/gg-parser/internal/backend"
	"github.com/dvloznov/gg-parser/internal/config"
	"github.com/dvloznov/gg-parser/internal/extractor"
	"github.com/dvloznov/gg-parser/internal/logger"
	"github.com/dvloznov/gg-parser/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file (or set CONFIG_FILE env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Format)
	ctx := logger.WithContext(context.Background(), log)

	if cfg.DevelopmentMode() {
		log.Warn().Msg("API_KEY not set - running in development mode without authentication")
	}

	be := backend.Open(ctx, cfg)
	defer be.Close()

	var sink pipeline.Sink
	var lister handlers.ExpenseLister
	if be.Store != nil {
		sink = be.Store
		lister = be.Store
	}

	processor := pipeline.NewProcessor(extractor.New(), sink, be.Destination)

	emailHandler := handlers.NewEmailHandler(processor)
	expensesHandler := handlers.NewExpensesHandler(lister, be.Destination)

	auth := middleware.Auth(cfg.Auth.APIKey)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not Found")
			return
		}
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		handlers.Root(w, r)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.Health(w, r)
	})

	mux.Handle("/parse-email", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			emailHandler.ParseEmail(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/expenses", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			expensesHandler.ListExpenses(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID(log),
		middleware.Logger(log),
		middleware.Metrics("/", "/health", "/parse-email", "/expenses", "/metrics"),
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("port", cfg.HTTP.Port).
			Str("backend", cfg.Persistence.Backend).
			Bool("persistence", be.Destination.Configured()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
