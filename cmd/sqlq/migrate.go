package main

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"sqlq/compound"
	"sqlq/config"
	"sqlq/database"
	"sqlq/shared/logger"
)

var (
	migrateDown bool
	migrateMax  int
	migratePlan bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or drop the compound side tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := compound.NewDefaultManager().Migrations()
		if err != nil {
			return err
		}
		dir := migrate.Up
		if migrateDown {
			dir = migrate.Down
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := database.NewMySQLDriver(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Log.Warn("Failed to close database", logger.Err(err))
			}
		}()

		if migratePlan {
			planned, _, err := migrate.PlanMigration(db.Pool().DB, "mysql", source, dir, migrateMax)
			if err != nil {
				return err
			}
			for _, m := range planned {
				for _, q := range m.Queries {
					fmt.Fprintln(cmd.OutOrStdout(), q)
				}
			}
			return nil
		}

		n, err := migrate.ExecMax(db.Pool().DB, "mysql", source, dir, migrateMax)
		if err != nil {
			return fmt.Errorf("migration failed after %d steps: %w", n, err)
		}
		logger.Log.Info("Migrations applied", logger.Int("count", n), logger.Bool("down", migrateDown))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "drop instead of create")
	migrateCmd.Flags().IntVar(&migrateMax, "max", 0, "maximum number of migrations, 0 for all")
	migrateCmd.Flags().BoolVar(&migratePlan, "plan", false, "print the statements without running them")
}
