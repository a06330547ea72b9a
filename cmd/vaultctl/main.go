package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "vaultctl",
	Short: "Run and administer the credvault server",
	Long: `Run and administer the credvault server.

A .env file in the working directory, or the one named by --env-file,
is loaded before any command runs. Variables already set in the
environment take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file to load (default .env when present)")
	rootCmd.Version = version
}

// loadEnvFile loads name, or .env when name is empty and the file exists.
func loadEnvFile(name string) error {
	if name != "" {
		return godotenv.Load(name)
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
