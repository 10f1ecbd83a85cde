package cmd

import (
	"encoding/json"
	"os"

	"booking-payments/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one manual reconciliation pass and print the tally",
		Long: `Scan every pending payment record once, confirm bookings whose payment the
gateway reports as approved and expire records past their window.

Examples:
  booking-payments reconcile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			d, err := buildDeps(cmd.Context(), config, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			service := usecase.NewService(d.repo, d.gw, d.locker, config, logger)
			result, err := service.Reconcile.RunManual(cmd.Context())
			if err != nil {
				logger.Error("Manual reconciliation failed", zap.Error(err))
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
