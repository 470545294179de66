package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xelth-com/eckmrpgo/internal/services/erp"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull units of measure and products from the ERP once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer a.close()

		if !a.cfg.ERP.Enabled() {
			return errors.New("ERP_URL and ERP_DATABASE must be set")
		}
		res, err := erp.NewSyncService(a.db.DB, a.cfg.ERP, a.logger, nil).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "categories=%d uoms=%d products=%d skipped=%d\n",
			res.Categories, res.Uoms, res.Products, res.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
