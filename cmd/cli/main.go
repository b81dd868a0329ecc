package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/config"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/notifications"
	"github.com/reviewinn/backend/internal/seed"
	"github.com/reviewinn/backend/internal/views"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reviewinn",
	Short: "ReviewInn admin CLI - migrations, seeding, and maintenance",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using system environment variables")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
			return err
		}
		return database.Initialize(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
		_ = logger.Close()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(); err != nil {
			return err
		}
		fmt.Println("migrations complete")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the development database with realistic data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(); err != nil {
			return err
		}
		engine := aggregation.NewEngine(database.DB, category.NewEngine(database.DB))
		return seed.NewSeeder(database.DB, engine).SeedDev()
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute every entity's denormalized counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := aggregation.NewEngine(database.DB, category.NewEngine(database.DB))
		n, err := engine.ReconcileAll(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("reconciled %d entities\n", n)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired view rows and notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		viewRows, err := views.NewTracker(database.DB).SweepExpired(ctx)
		if err != nil {
			return err
		}
		notificationRows, err := notifications.NewService(database.DB).SweepExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("swept %d view rows, %d notifications\n", viewRows, notificationRows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
