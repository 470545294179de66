package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer a.close()
		a.logger.Info("Schema synchronized successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
