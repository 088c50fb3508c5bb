package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/finbranch/loan-engine/internal/audit"
	"github.com/finbranch/loan-engine/internal/config"
	"github.com/finbranch/loan-engine/internal/eligibility"
	"github.com/finbranch/loan-engine/internal/handler"
	"github.com/finbranch/loan-engine/internal/ledger"
	"github.com/finbranch/loan-engine/internal/repository"
	"github.com/finbranch/loan-engine/internal/settings"
	"github.com/finbranch/loan-engine/pkg/response"
)

func main() {
	// .env is optional, viper reads the environment either way
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	postingRepo := repository.NewPostingRepository(db)
	directory := repository.NewCustomerDirectory(db)

	// Initialize collaborators and services
	settingsStore := settings.NewStore(db, redisClient, cfg.SettingsDefaults(), cfg.GetSettingsCacheTTL())
	notifier := audit.NewRedisNotifier(redisClient, cfg.Business.AuditChannel)
	evaluator := eligibility.NewEvaluator(directory, settingsStore)
	ledgerService := ledger.NewService(loanRepo, postingRepo, notifier)

	loanHandler := handler.NewLoanHandler(evaluator, ledgerService, settingsStore)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(loanHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: response.LoggingMiddleware(router),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/eligibility", loanHandler.Evaluate).Methods("POST")
	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.PostPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/postings", loanHandler.GetPostings).Methods("GET")
	api.HandleFunc("/loans/{loanId}/guarantors", loanHandler.GetGuarantors).Methods("GET")
	api.HandleFunc("/loans/{loanId}/certificate", loanHandler.GetCertificate).Methods("GET")

	return router
}
