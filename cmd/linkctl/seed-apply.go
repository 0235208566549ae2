package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sellerlink/sellerlink/pkg/db"
	"github.com/sellerlink/sellerlink/pkg/seed"
	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

// seedApplyCmd represents the seed apply command
var seedApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply a seed manifest",
	Long: `Apply a YAML seed manifest.

This command parses the manifest and creates the listed users, accounts
and role bindings. Applying the same manifest twice is safe; entries that
already exist are skipped.

Example:
  linkctl seed apply seed.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		result, err := applySeedFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to apply seed: %v\n", err)
			os.Exit(1)
		}

		// Output result as JSON
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	},
}

func init() {
	seedCmd.AddCommand(seedApplyCmd)
}

func applySeedFile(filename string) (*seed.Result, error) {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return nil, err
	}
	return applySeedFromPath(database, filename)
}

func applySeedFromPath(database *gorm.DB, filename string) (*seed.Result, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = file.Close() }()

	manifest, err := seed.Parse(file)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	applier := seed.NewApplier(
		userdir.NewDirectory(database),
		gormstore.NewAccountsStore(database),
		gormstore.NewRoleBindingsStore(database),
	)
	return applier.Apply(manifest)
}
