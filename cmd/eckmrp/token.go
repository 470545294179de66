package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xelth-com/eckmrpgo/internal/utils"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue an API access token signed with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch tokenRole {
		case utils.RoleAdmin, utils.RolePlanner, utils.RoleViewer:
		default:
			return fmt.Errorf("unknown role %q", tokenRole)
		}
		a, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer a.close()
		if a.cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		token, err := utils.GenerateToken(args[0], tokenRole, a.cfg.JWTSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", utils.RoleViewer, "admin, planner or viewer")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
