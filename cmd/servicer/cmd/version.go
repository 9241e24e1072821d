package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the servicer CLI.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("servicer version %s\n", version)
		fmt.Println("Loan servicing analytics: schedules, balances, ledgers and aging buckets")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
