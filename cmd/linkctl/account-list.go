package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sellerlink/sellerlink/pkg/db"
	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
)

// accountListCmd represents the account list command
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered seller accounts",
	Long: `List all registered seller accounts.

Example:
  linkctl account list`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listAccounts(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list accounts: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	accountCmd.AddCommand(accountListCmd)
}

func listAccounts() error {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}

	accounts, err := gormstore.NewAccountsStore(database).List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXTERNAL ID\tDISPLAY NAME")
	for _, account := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\n", account.ID, account.ExternalID, account.DisplayName)
	}
	return w.Flush()
}
