package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sellerlink/sellerlink/pkg/db"
	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/store"
	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

// roleGrantCmd represents the role grant command
var roleGrantCmd = &cobra.Command{
	Use:   "grant <email> <external_id> <role>",
	Short: "Grant a user a role on an account",
	Long: `Grant a directory user a role on a seller account.

Roles: Drafter, Creator, Reviewer, Admin, SuperAdmin.
A user holds at most one role per account; use the API to change an
existing binding.

Example:
  linkctl role grant alice@example.com ebay-seller-42 Admin`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		email, externalID, roleName := args[0], args[1], args[2]

		if err := grantRole(email, externalID, roleName); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to grant role: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Granted %s to '%s' on '%s'\n", roleName, email, externalID)
	},
}

// roleRevokeCmd represents the role revoke command
var roleRevokeCmd = &cobra.Command{
	Use:   "revoke <email> <external_id>",
	Short: "Revoke a user's role on an account",
	Long: `Revoke a directory user's role binding on a seller account.

Example:
  linkctl role revoke alice@example.com ebay-seller-42`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		email, externalID := args[0], args[1]

		if err := revokeRole(email, externalID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to revoke role: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Revoked role of '%s' on '%s'\n", email, externalID)
	},
}

func init() {
	roleCmd.AddCommand(roleGrantCmd)
	roleCmd.AddCommand(roleRevokeCmd)
}

func resolveBindingSubjects(email, externalID string) (userID, accountID uint, bindings *gormstore.RoleBindingsStore, err error) {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return 0, 0, nil, err
	}

	user, err := userdir.NewDirectory(database).FindByEmail(email)
	if err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			return 0, 0, nil, fmt.Errorf("user '%s' does not exist", email)
		}
		return 0, 0, nil, err
	}

	account, err := gormstore.NewAccountsStore(database).Find(externalID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return 0, 0, nil, fmt.Errorf("account '%s' does not exist", externalID)
		}
		return 0, 0, nil, err
	}

	return user.ID, account.ID, gormstore.NewRoleBindingsStore(database), nil
}

func grantRole(email, externalID, roleName string) error {
	role, err := model.RoleString(roleName)
	if err != nil {
		return fmt.Errorf("unknown role: %s", roleName)
	}

	userID, accountID, bindings, err := resolveBindingSubjects(email, externalID)
	if err != nil {
		return err
	}

	if _, err := bindings.Grant(userID, accountID, role); err != nil {
		if errors.Is(err, store.ErrDuplicateBinding) {
			return fmt.Errorf("'%s' already holds a role on '%s'", email, externalID)
		}
		return err
	}
	return nil
}

func revokeRole(email, externalID string) error {
	userID, accountID, bindings, err := resolveBindingSubjects(email, externalID)
	if err != nil {
		return err
	}

	return bindings.Revoke(userID, accountID)
}
