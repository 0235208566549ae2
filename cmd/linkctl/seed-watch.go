package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sellerlink/sellerlink/pkg/db"
)

// seedWatchCmd represents the seed watch command
var seedWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a file and reapply the seed manifest if it's modified",
	Long: `Watch a file and reapply the seed manifest when it changes.

To trigger a reload, replace the contents of the watched file with the path
to the manifest. The path must be visible to the process running
"linkctl seed watch".

Example:
  linkctl seed watch /run/sellerlink/seed/load`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		if err := watchSeed(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch seed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	seedCmd.AddCommand(seedWatchCmd)
}

func watchSeed(filename string) error {
	// Connect to database
	database, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Add file to watcher
	if err := watcher.Add(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}

	fmt.Printf("Watching %s for seed changes\n", filename)

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				fmt.Printf("[%s] File modified, reapplying seed...\n", time.Now().Format(time.RFC3339))

				// Read the file to get the manifest path
				content, err := os.ReadFile(filename)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
					continue
				}

				seedPath := string(content)
				if seedPath == "" {
					continue
				}

				// Apply the manifest
				if result, err := applySeedFromPath(database, seedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Error applying seed: %v\n", err)
				} else {
					fmt.Printf("Seed applied from %s: %d users, %d accounts, %d bindings, %d skipped\n",
						seedPath, result.UsersCreated, result.AccountsCreated, result.BindingsCreated, result.Skipped)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
