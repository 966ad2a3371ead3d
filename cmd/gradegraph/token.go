package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	auth "github.com/mind-engage/mindengage-grades/internal/auth/middleware"
)

func tokenCmd() *cobra.Command {
	var (
		sub, role string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with AUTH_HMAC_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			tok, err := auth.NewAuthService(cfg.AuthHMACSecret).IssueJWT(sub, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "token subject")
	cmd.Flags().StringVar(&role, "role", "teacher", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
