package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sellerlink/sellerlink/pkg/crypt"
	"github.com/sellerlink/sellerlink/pkg/db"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

// userCreateCmd represents the user create command
var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a directory user",
	Long: `Create a user in the internal directory.

If no password is supplied, a random one is generated and printed to STDOUT.
Use --superuser to create a directory superuser that bypasses per-account
role checks.

Example:
  linkctl user create alice@example.com
  linkctl user create --superuser admin@example.com`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		password, _ := cmd.Flags().GetString("password")
		superuser, _ := cmd.Flags().GetBool("superuser")

		generated := password == ""
		if generated {
			bytes, err := crypt.RandomBytes(24)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to generate password: %v\n", err)
				os.Exit(1)
			}
			password = base64.URLEncoding.EncodeToString(bytes)
		}

		if err := createUser(email, firstName, lastName, password, superuser); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Created user '%s'\n", email)
		if generated {
			fmt.Println(password)
		}
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("first-name", "", "User's first name")
	userCreateCmd.Flags().String("last-name", "", "User's last name")
	userCreateCmd.Flags().String("password", "", "Password (generated when omitted)")
	userCreateCmd.Flags().Bool("superuser", false, "Create a directory superuser")
}

func createUser(email, firstName, lastName, password string, superuser bool) error {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}

	directory := userdir.NewDirectory(database)
	if superuser {
		_, err = directory.CreateSuperuser(email, firstName, lastName, password)
	} else {
		_, err = directory.CreateUser(email, firstName, lastName, password)
	}
	return err
}
