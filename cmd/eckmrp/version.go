package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xelth-com/eckmrpgo/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "eckmrp %s (built %s, commit time %s)\n",
			buildinfo.Version(), orUnknown(buildinfo.BuildTime), orUnknown(buildinfo.CommitTime))
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
