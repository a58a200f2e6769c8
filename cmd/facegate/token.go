package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/facegate/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed bearer token",
	Long: `Issue a bearer token for a terminal or operator. Scopes are disjoint:
access:decide (terminals), registry:admin (enrollment) and audit:read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Auth.SigningKey == "" {
			return errors.New("auth.signing_key is not configured")
		}
		a := auth.NewAuthority(cfg.Auth.SigningKey, cfg.Auth.Issuer)
		token, err := a.Issue(mustGetString(cmd, "subject"), mustGetStringSlice(cmd, "scope"), mustGetDuration(cmd, "ttl"))
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().String("subject", "", "Token subject (terminal or operator name)")
	tokenIssueCmd.Flags().StringSlice("scope", nil, "Scope to grant (repeatable)")
	tokenIssueCmd.Flags().Duration("ttl", 0, "Token lifetime; 0 never expires")
	_ = tokenIssueCmd.MarkFlagRequired("subject")
	_ = tokenIssueCmd.MarkFlagRequired("scope")
}
