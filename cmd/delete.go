package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"terminy/storage"
)

var (
	deletePromptInput  io.Reader = os.Stdin
	deletePromptOutput io.Writer = os.Stdout
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the complete SQLite database file",
	Long: `Destructive database cleanup command.

This command always deletes the complete SQLite database file, including
stored appointments and the geocode cache. Before deletion, an interactive
security prompt requires typing exactly "Y".

With --rows, only stored appointments are deleted (all of them, or one
region with --region) and the file with its geocode cache is kept.

The database path defaults to storage.path from the configuration.`,
	Example: `
  # Delete the complete SQLite file (requires interactive confirmation)
  terminy delete --db ./terminy.db

  # Delete stored rows of one region
  terminy delete --rows --region opolskie
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deleteDBPath, err := cmd.Flags().GetString("db")
		if err != nil {
			return err
		}
		if deleteDBPath == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			deleteDBPath = cfg.Storage.Path
		}

		rowsOnly, _ := cmd.Flags().GetBool("rows")
		regionValue, _ := cmd.Flags().GetString("region")
		target := deleteDBPath
		if rowsOnly {
			target = "rows in " + deleteDBPath
		}

		confirmed, err := confirmDeletePrompt(deletePromptInput, deletePromptOutput, target)
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("delete aborted: confirmation was not 'Y'")
		}

		if rowsOnly {
			removed, err := deleteStoredRows(deleteDBPath, regionValue)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d stored rows from %s\n", removed, deleteDBPath)
			return nil
		}

		if err := removeDatabaseFile(deleteDBPath); err != nil {
			return err
		}
		fmt.Printf("Deleted database file: %s\n", deleteDBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().String("db", "", "Path to local SQLite database (default: storage.path)")
	deleteCmd.Flags().Bool("rows", false, "Delete stored appointments only, keep the database file")
	deleteCmd.Flags().StringP("region", "r", "", "With --rows, only delete this region")
}

func confirmDeletePrompt(input io.Reader, output io.Writer, path string) (bool, error) {
	if input == nil {
		return false, fmt.Errorf("delete confirmation input is not available")
	}

	if output == nil {
		output = io.Discard
	}

	if _, err := fmt.Fprintf(output, "Delete database file %q? Type Y to confirm: ", path); err != nil {
		return false, fmt.Errorf("write delete confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			line = strings.TrimSpace(line)
			return line == "Y", nil
		}
		return false, fmt.Errorf("read delete confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "Y", nil
}

func deleteStoredRows(path, regionValue string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("database file not found: %s", path)
		}
		return 0, fmt.Errorf("stat database file: %w", err)
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	if strings.TrimSpace(regionValue) == "" {
		return store.DeleteAllAppointments()
	}
	region, err := resolveRegion(regionValue)
	if err != nil {
		return 0, err
	}
	return store.DeleteRegion(region.Slug)
}

func removeDatabaseFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database file not found: %s", path)
		}
		return fmt.Errorf("stat database file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("database path is a directory: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete database file: %w", err)
	}
	return nil
}
