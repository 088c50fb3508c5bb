package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/finbranch/loan-engine/internal/config"
	"github.com/finbranch/loan-engine/internal/ledger"
	"github.com/finbranch/loan-engine/internal/repository"
)

func main() {
	log.Println("Starting ledger scheduler...")

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	reconciler := ledger.NewReconciler(
		repository.NewLoanRepository(db),
		repository.NewPostingRepository(db),
	)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds())

	// Nightly conservation check across the whole ledger (runs at midnight)
	_, err = c.AddFunc("0 0 0 * * *", func() {
		runReconciliation(reconciler)
	})
	if err != nil {
		log.Fatalf("Error scheduling reconciliation job: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func runReconciliation(reconciler *ledger.Reconciler) {
	log.Println("Running ledger reconciliation job...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	drifts, err := reconciler.Run(ctx)
	if err != nil {
		log.Printf("Reconciliation failed: %v", err)
		return
	}

	if len(drifts) == 0 {
		log.Println("Reconciliation clean, ledger is internally consistent")
		return
	}

	for _, drift := range drifts {
		log.Printf("Reconciliation drift: %s", drift)
	}
}
