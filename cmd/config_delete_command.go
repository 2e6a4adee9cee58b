package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"terminy/config"
)

var configDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the active configuration file.",
	Long: `Delete the configuration file currently selected by terminy.

If no configuration file is active, the command returns an error. The local
database and the spreadsheet cache are kept; remove them with "terminy delete"
and "terminy cache clear".`,
	Example: `
  # Delete active config
  terminy config delete

  # Delete config at a custom path
  terminy --configFile ./custom-terminy.yaml config delete
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteConfigFile(os.Stdout, viper.ConfigFileUsed(), viper.GetString(config.KeyStoragePath))
	},
}

// deleteConfigFile removes the config at path and points at the data that
// outlives it.
func deleteConfigFile(out io.Writer, path, storagePath string) error {
	if path == "" {
		return fmt.Errorf("no configuration file found")
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("error deleting configuration file: %w", err)
	}

	if _, err := fmt.Fprintf(out, "Configuration file successfully deleted: %s\n", path); err != nil {
		return err
	}
	if storagePath == "" {
		return nil
	}
	_, err := fmt.Fprintf(out, "Database %s was kept (remove with: terminy delete --db %s)\n", storagePath, storagePath)
	return err
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}
