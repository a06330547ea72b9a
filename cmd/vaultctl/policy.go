package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/credvault/pkg/policy"
)

// policyCmd represents the policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage users, groups and memberships",
	Long: `Manage the access policy: users, their role, permission groups and
the category and environment scopes of each membership.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'policy' requires a subcommand (load, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(policyCmd)
}

// loadPolicyFromPath applies the document at path through rt.
func loadPolicyFromPath(ctx context.Context, rt *runtime, path, actor string, dryRun bool) (*policy.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return policy.NewLoader(rt.memberships).
		WithAuditor(rt.recorder).
		WithLogger(rt.log).
		WithActor(actor).
		WithDryRun(dryRun).
		LoadFromReader(ctx, file)
}
