package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// policyLoadCmd represents the policy load command
var policyLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load an access policy file",
	Long: `Load an access policy YAML file.

Users and groups are created or updated. Each listed user's memberships
are replaced by the ones in the file. The whole file is applied in one
transaction.

Example:
  vaultctl policy load access.yml
  vaultctl policy load --dry-run access.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		actor, _ := cmd.Flags().GetString("actor")

		rt, err := newRuntime()
		if err != nil {
			fail("Failed to load policy: %v", err)
		}

		result, err := loadPolicyFromPath(context.Background(), rt, args[0], actor, dryRun)
		if err != nil {
			fail("Failed to load policy: %v", err)
		}

		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	},
}

func init() {
	policyCmd.AddCommand(policyLoadCmd)
	policyLoadCmd.Flags().Bool("dry-run", false, "validate and apply in a transaction that is rolled back")
	policyLoadCmd.Flags().String("actor", "", "user id recorded as the actor of the load")
}
