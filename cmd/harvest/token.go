package main

import (
	"errors"
	"fmt"
	"time"

	"soracom-harvest/internal/config"
	"soracom-harvest/internal/middleware"

	"github.com/spf13/cobra"
)

func installTokenCmd(a *app) {
	var (
		subject string
		ttl     time.Duration
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the harvest server",
		Long: `Issue a bearer token for the harvest server.

The token is signed with JWT_SECRET, the same secret the server verifies with.
Without --ttl the token lives for JWT_EXPIRATION hours.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadFrom(a.viper)
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET must be set to issue tokens")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.Expiration) * time.Hour
			}
			token, err := middleware.GenerateToken(cfg.JWT.Secret, subject, ttl)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			_, err = fmt.Fprintln(a.stdout, token)
			return err
		},
	}

	tokenCmd.Flags().StringVar(&subject, "subject", "harvest", "subject the token is issued to")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime")

	a.cmd.AddCommand(tokenCmd)
}
