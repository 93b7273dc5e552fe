package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe backend liveness",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		body, err := api.GetHealth()
		if err != nil {
			fmt.Printf("Backend unreachable: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Backend OK: %s\n", body)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
