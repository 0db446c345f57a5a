package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/username/tradevisor/backend/src/config"
	"github.com/username/tradevisor/backend/src/handlers"
	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/processors"
	"github.com/username/tradevisor/backend/src/security"
	"github.com/username/tradevisor/backend/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool)
	for _, origin := range config.Cfg.AllowedOrigins {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Session-Token")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("TradeVisor backend server starting...")

	if len(config.Cfg.SessionTokenSecret) < 32 {
		logger.L.Error("SESSION_TOKEN_SECRET configuration invalid, must be at least 32 bytes.")
		os.Exit(1)
	}

	sessionCache := cache.New(config.Cfg.SessionTTL, services.CacheCleanupInterval)
	tokenManager := security.NewSessionTokenManager(config.Cfg.SessionTokenSecret, config.Cfg.SessionTTL)

	matchProcessor := processors.NewMatchProcessor()
	aggregationProcessor := processors.NewAggregationProcessor()
	behaviorProcessor := processors.NewBehaviorProcessor(processors.BehaviorThresholds{
		OvertradingTradesPerDay: config.Cfg.OvertradingTradesPerDay,
		HighLossNetValue:        decimal.NewFromFloat(config.Cfg.HighLossDayThreshold),
	})

	analysisService := services.NewAnalysisService(
		matchProcessor,
		aggregationProcessor,
		behaviorProcessor,
		sessionCache,
		config.Cfg.SessionTTL,
	)

	uploadHandler := handlers.NewUploadHandler(analysisService, tokenManager)
	analyticsHandler := handlers.NewAnalyticsHandler(analysisService)
	exportHandler := handlers.NewExportHandler(analysisService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "TradeVisor Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", uploadHandler.HandleUpload)

		r.Group(func(r chi.Router) {
			r.Use(handlers.SessionMiddleware(tokenManager))

			r.Get("/analysis/summary", analyticsHandler.HandleSummary)
			r.Get("/analysis/records", analyticsHandler.HandleRecords)
			r.Get("/analysis/trades", analyticsHandler.HandleTrades)
			r.Get("/analysis/daily", analyticsHandler.HandleDaily)
			r.Get("/analysis/hourly", analyticsHandler.HandleHourly)
			r.Get("/analysis/weekday", analyticsHandler.HandleWeekday)
			r.Get("/analysis/instruments", analyticsHandler.HandleInstruments)
			r.Delete("/analysis/session", analyticsHandler.HandleDeleteSession)

			r.Get("/export/{table}", exportHandler.HandleExport)
		})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
