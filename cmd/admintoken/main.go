// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

// Command admintoken prints an admin bearer token for POST /api/v1/refresh,
// signed with the server's ADMIN_JWT_SECRET.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tomtom215/ctgp-popularity/internal/auth"
	"github.com/tomtom215/ctgp-popularity/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to read .env file: %v\n", err)
	}
	if err := newRootCmd(os.Stdout, config.Load).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, load func() (*config.Config, error)) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:          "admintoken",
		Short:        "Print an admin token for the refresh endpoint",
		Long:         "Sign an HS256 admin token with ADMIN_JWT_SECRET. The token expires after ADMIN_TOKEN_TTL unless --ttl is given.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.Security.AdminSecret == "" {
				return fmt.Errorf("ADMIN_JWT_SECRET is not set; the refresh endpoint is open")
			}
			if ttl == 0 {
				ttl = cfg.Security.AdminTokenTTL
			}

			tokens, err := auth.NewAdminTokens(cfg.Security.AdminSecret, ttl)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "Who the token is for (JWT sub claim)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default ADMIN_TOKEN_TTL)")
	return cmd
}
