package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sellerlink/sellerlink/pkg/db"
	"github.com/sellerlink/sellerlink/pkg/store"
	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
)

// accountDeleteCmd represents the account delete command
var accountDeleteCmd = &cobra.Command{
	Use:   "delete <external_id>",
	Short: "Delete a seller account",
	Long: `Delete a seller account and all its associated data.

This command removes the account record along with its stored credential
and every role binding on it.

Example:
  linkctl account delete ebay-seller-42`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		externalID := args[0]

		if err := deleteAccount(externalID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete account: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Deleted account '%s'\n", externalID)
	},
}

func init() {
	accountCmd.AddCommand(accountDeleteCmd)
}

func deleteAccount(externalID string) error {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}

	accounts := gormstore.NewAccountsStore(database)
	account, err := accounts.Find(externalID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return fmt.Errorf("account '%s' does not exist", externalID)
		}
		return err
	}

	// Credentials and role bindings are removed by the schema's cascading
	// foreign keys.
	return accounts.Delete(account.ID)
}
