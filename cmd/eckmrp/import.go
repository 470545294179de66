package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xelth-com/eckmrpgo/internal/importer"
	"github.com/xelth-com/eckmrpgo/internal/process"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file-or-directory>...",
	Short: "Create production processes from YAML definitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var all importer.File
		for _, path := range args {
			f, err := importer.LoadPath(path)
			if err != nil {
				return err
			}
			all.Processes = append(all.Processes, f.Processes...)
		}
		if importDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "%d process definitions are valid\n", len(all.Processes))
			return nil
		}

		a, err := bootstrap(true)
		if err != nil {
			return err
		}
		defer a.close()

		im := importer.New(a.db.DB, process.NewService(a.db.DB, a.logger, nil), a.logger)
		created, err := im.Import(cmd.Context(), all)
		if err != nil {
			return err
		}
		for _, p := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d steps\n", p.ID, p.Name, len(p.Steps))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Only parse and validate the files")
	rootCmd.AddCommand(importCmd)
}
