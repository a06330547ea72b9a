package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/credvault/pkg/server/middleware"
)

// tokenCmd issues bearer tokens signed with CREDVAULT_JWT_SECRET.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for a user",
	Long: `Issue a bearer token for a user.

Example:
  curl -H "Authorization: Bearer $(vaultctl token alice)" http://localhost:8000/credentials`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig()
		if err != nil {
			fail("Failed to issue token: %v", err)
		}
		authn, err := middleware.NewJWTAuthenticator(middleware.JWTOptions{
			Secret:   []byte(cfg.JWTSecret()),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			fail("Failed to issue token: %v", err)
		}
		token, err := authn.Issue(args[0], ttl)
		if err != nil {
			fail("Failed to issue token: %v", err)
		}
		fmt.Print(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
}
