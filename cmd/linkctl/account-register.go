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

// accountRegisterCmd represents the account register command
var accountRegisterCmd = &cobra.Command{
	Use:   "register <external_id>",
	Short: "Register a seller account",
	Long: `Register a seller account by its marketplace identifier.

The external_id is the immutable identifier the marketplace assigns to the
seller. Registration creates the account record only; credentials are stored
separately once the seller completes the consent flow.

Example:
  linkctl account register ebay-seller-42
  linkctl account register ebay-seller-42 --display-name "Acme Surplus"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		externalID := args[0]
		displayName, _ := cmd.Flags().GetString("display-name")

		account, err := registerAccount(externalID, displayName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to register account: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Registered account '%s' (id: %d)\n", account.ExternalID, account.ID)
	},
}

func init() {
	accountCmd.AddCommand(accountRegisterCmd)
	accountRegisterCmd.Flags().StringP("display-name", "d", "", "Human readable account name")
}

func registerAccount(externalID, displayName string) (*store.Account, error) {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return nil, err
	}

	accounts := gormstore.NewAccountsStore(database)
	account, err := accounts.Register(externalID, displayName)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			return nil, fmt.Errorf("account '%s' already exists", externalID)
		}
		return nil, err
	}
	return account, nil
}
