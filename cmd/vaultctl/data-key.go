package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/credvault/pkg/cipher"
)

// dataKeyCmd represents the data-key command
var dataKeyCmd = &cobra.Command{
	Use:   "data-key",
	Short: "Manage the data encryption key",
	Long:  `Manage the data encryption key`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'data-key' requires a subcommand generate")
		fmt.Println()
		_ = cmd.Help()
	},
}

// dataKeyGenerateCmd represents the data-key > generate command
var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `Generate a data encryption key.

Use this command to generate a new Base64-encoded 256 bit key. Once
generated, place it into the environment of the credvault server. Every
secret field and file content is encrypted with keys derived from it.

The same command produces a suitable CREDVAULT_JWT_SECRET.

Example:

$ export CREDVAULT_DATA_KEY="$(vaultctl data-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := cipher.GenerateDataKey()
		if err != nil {
			fail("Failed to generate data key: %v", err)
		}
		fmt.Print(key)
	},
}

func init() {
	rootCmd.AddCommand(dataKeyCmd)
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}
