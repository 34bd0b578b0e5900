package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/farm2home/farm2home/config"
	"github.com/farm2home/farm2home/database/seeders"
	"github.com/farm2home/farm2home/internal/server"
	"github.com/farm2home/farm2home/pkg/database"
	"github.com/farm2home/farm2home/pkg/logger"
)

var recoverGraceFlag string

// bootDB loads config and opens the database connection.
func bootDB(ctx context.Context) (*mongo.Database, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	logger.Setup(config.IsProduction(), os.Stderr)
	return database.Connect(ctx)
}

// farm2home db:indexes
var indexesCmd = &cobra.Command{
	Use:   "db:indexes",
	Short: "Create the MongoDB indexes the API relies on",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer database.Disconnect(context.Background())

		if err := database.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		for col, models := range database.Indexes() {
			fmt.Fprintf(cmd.OutOrStdout(), "  • %s: %d index(es)\n", col, len(models))
		}
		return nil
	},
}

// farm2home seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := bootDB(ctx)
		if err != nil {
			return err
		}
		defer database.Disconnect(context.Background())

		if err := database.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
		return seeders.RunAll(ctx, db, cmd.OutOrStdout())
	},
}

// farm2home stock:recover
var recoverCmd = &cobra.Command{
	Use:   "stock:recover",
	Short: "Settle stock adjustments left pending by a crash",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if recoverGraceFlag != "" {
			config.Set("RECOVERY_GRACE", recoverGraceFlag)
		}

		app, err := server.Bootstrap(ctx)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		report, err := app.Ledger.Recover(ctx, config.RecoveryGrace())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	recoverCmd.Flags().StringVar(&recoverGraceFlag, "grace", "", "Only settle entries older than this (e.g. 30s, 5m)")
}
