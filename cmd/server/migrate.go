package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-catering-requests/internal/config"
	"github.com/pesio-ai/be-catering-requests/internal/database"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(url); err != nil {
				return err
			}
			return printVersion(cmd, url)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.InvalidInput("steps", "steps must be an integer")
				}
				steps = n
			}
			url, err := databaseURL()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(url, steps); err != nil {
				return err
			}
			return printVersion(cmd, url)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			return printVersion(cmd, url)
		},
	})

	return cmd
}

// databaseURL loads only what migrations need; the serve-time checks such
// as the JWT secret do not apply.
func databaseURL() (string, error) {
	cfg, err := config.NewLoader().WithConfigPath(cfgFile).Load()
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errors.InvalidInput("database.url", "database url is required")
	}
	return cfg.Database.URL, nil
}

func printVersion(cmd *cobra.Command, url string) error {
	version, dirty, err := database.MigrationVersion(url)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}
