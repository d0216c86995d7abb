package main

import (
	"fmt"
	"time"

	"verdict_backend/internal/auth"
	"verdict_backend/internal/models"

	"github.com/spf13/cobra"
)

// token - выпуск JWT для локальной разработки и smoke-тестов
func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		accountID string
		role      string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}

			r := models.UserRole(role)
			if !r.Valid() {
				return fmt.Errorf("invalid --role %q", role)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.TTL) * time.Minute
			}
			auth.Configure(cfg.JWT.Secret, ttl)

			token, err := auth.IssueToken(accountID, r)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (required)")
	cmd.Flags().StringVar(&role, "role", string(models.UserRoleRequester), "requester | judge | expert | admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default jwt.ttl)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
