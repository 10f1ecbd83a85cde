package cmd

import (
	"fmt"

	"booking-payments/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.InitDB(config.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			logger.Info("Migrations applied", zap.Strings("files", applied))
			return nil
		},
	}
}
