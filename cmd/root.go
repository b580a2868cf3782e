// Package cmd implements the halcyon CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🌊"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "halcyon",
	Short: logo + " halcyon — persona chat bot with tiered memory",
	Long:  logo + " halcyon — a multi-channel chat assistant that keeps long conversations affordable through tiered history compression",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}
