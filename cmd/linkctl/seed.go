package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Manage declarative seed data",
	Long:  `Load users, accounts and role bindings from a seed manifest.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'seed' requires a subcommand (apply, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
