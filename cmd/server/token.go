package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-catering-requests/internal/auth"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// newTokenCmd signs a bearer token with the configured secret. It exists
// for local development against a service without an identity provider.
func newTokenCmd() *cobra.Command {
	var (
		subject string
		email   string
		name    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Service.Environment == "production" {
				return errors.Forbidden("token issuing is disabled in production")
			}
			if subject == "" || email == "" {
				return errors.InvalidInput("subject", "--subject and --email are required")
			}

			tok, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(auth.Identity{
				Subject: subject,
				Email:   email,
				Name:    name,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
