package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linkctl",
	Short: "Control the SellerLink server",
	Long: `linkctl manages the SellerLink server and its data.

SellerLink brokers access between internal listing tools and seller-owned
eBay accounts: it stores OAuth credentials encrypted at rest, keeps access
tokens fresh, and enforces per-account role bindings.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
