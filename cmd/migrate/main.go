package main

import (
	"log"
	"os"

	"sentinel-be/internal/model"
	"sentinel-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions AutoMigrate does not create
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	models := []interface{}{
		&model.Case{},
		&model.AgentOutput{},
		&model.Decision{},
		&model.Approval{},
		&model.SuggestionExecution{},
		&model.Run{},
		&model.Metric{},
		&model.StrategyMemory{},
		&model.AuditLog{},
	}
	log.Printf("Step 2: Running AutoMigrate for %d Tables...", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: read-path indexes for the newest-first lookups
	log.Println("Step 3: Creating Indexes...")

	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_cases_case_run_created ON cases (case_id, run_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_case_run_created ON decisions (case_id, run_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_case_run_created ON audit_logs (case_id, run_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run_created ON runs (run_id, created_at DESC);`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
